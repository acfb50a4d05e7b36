// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package stacktrace

import (
	"errors"
	"strings"
	"testing"

	rerrors "github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/parsing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedTrace = `Exception in thread "main" java.lang.IllegalStateException: outer
	at a.b.C.x(C.java:12)
	at java.base/java.lang.Thread.run(Thread.java:833)
	at a.b.D$$Lambda$14/0x0000000800c1840.accept(Unknown Source)
	at a.b.E.n(Native Method) ~[client.jar:?]
	Suppressed: java.lang.RuntimeException: s
		at a.b.C.y(C.java:3)
		Caused by: java.io.IOException
			at a.b.F.z(F.java:9)
			... 2 more
Caused by: a.b.G: inner message
with a second line
	at a.b.C.x(C.java:20)
	... 5 more
`

func TestParse_Structure(t *testing.T) {
	tr, err := Parse(nestedTrace)
	require.NoError(t, err)
	require.Len(t, tr.Blocks, 1)
	assert.True(t, tr.TrailingNewline)

	root := tr.Blocks[0]
	assert.Equal(t, BlockRoot, root.Kind())
	assert.Equal(t, `Exception in thread "main" `, root.Prefix)
	assert.Equal(t, "java.lang.IllegalStateException", root.Exception)
	assert.Equal(t, ": outer", root.Message)
	require.Len(t, root.Frames, 4)

	first := root.Frames[0]
	assert.Equal(t, "a.b.C", first.ClassName)
	assert.Equal(t, "x", first.MethodName)
	assert.Equal(t, Location{File: "C.java", Line: 12, HasLine: true}, first.Location)

	assert.Equal(t, "java.base/", root.Frames[1].Module)
	assert.Equal(t, "java.lang.Thread", root.Frames[1].ClassName)

	assert.Equal(t, "a.b.D$$Lambda$14/0x0000000800c1840", root.Frames[2].ClassName)
	assert.True(t, root.Frames[2].Location.IsUnknown())

	assert.True(t, root.Frames[3].Location.Native)
	assert.Equal(t, " ~[client.jar:?]", root.Frames[3].Trailing)

	suppressed := root.Suppressed()
	require.Len(t, suppressed, 1)
	s := suppressed[0]
	assert.Equal(t, "\t", s.Indent)
	assert.Equal(t, "java.lang.RuntimeException", s.Exception)
	require.NotNil(t, s.Cause())
	assert.Equal(t, "java.io.IOException", s.Cause().Exception)
	assert.Equal(t, "", s.Cause().Message)
	require.NotNil(t, s.Cause().Elision)
	assert.Equal(t, 2, s.Cause().Elision.Count)

	cause := root.Cause()
	require.NotNil(t, cause)
	assert.Equal(t, "a.b.G", cause.ExceptionType().Name())
	assert.Equal(t, []string{"with a second line"}, cause.Continued)
	require.Len(t, cause.Frames, 1)
	assert.Equal(t, 5, cause.Elision.Count)
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := map[string]string{
		"nested":          nestedTrace,
		"no final eol":    strings.TrimSuffix(nestedTrace, "\n"),
		"headless":        "\tat a.b.C.x(C.java:1)\n\t... 3 more\n",
		"logback":         "java.lang.Error: x\n\tat a.B.c(B.java:1)\n\t... 12 common frames omitted\n",
		"leading zero":    "x.Y: z\n\tat a.B.c(C.java:012)\n",
		"blank lines":     "\n\nx.Y\n\n\tat a.B.c()\n\n",
		"loader prefix":   "x.Y\n\tat app//net.Foo.bar(Foo.java:4)\n\tat mod@1.0/net.Foo.<init>(Foo.java:1)\n",
		"message only":    "something went wrong",
		"chained causes":  "a.A: 1\n\tat a.A.a(A.java:1)\nCaused by: a.B: 2\n\t... 1 more\nCaused by: a.C: 3\n\t... 1 more\n",
		"frame after end": "x.Y\n\tat a.B.c(B.java:1)\n\t... 1 more\n\tat a.B.d(B.java:2)\n",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			tr, err := Parse(in)
			require.NoError(t, err)
			assert.Equal(t, in, tr.String())
		})
	}
}

func TestParse_NormalizesCRLF(t *testing.T) {
	crlf := strings.ReplaceAll(nestedTrace, "\n", "\r\n")
	tr, err := Parse(crlf)
	require.NoError(t, err)
	assert.Equal(t, nestedTrace, tr.String())

	var b strings.Builder
	n, err := tr.WriteTo(&b)
	require.NoError(t, err)
	assert.Equal(t, int64(len(nestedTrace)), n)
}

func TestParse_CausesChain(t *testing.T) {
	tr, err := Parse("a.A: 1\n\tat a.A.a(A.java:1)\nCaused by: a.B: 2\n\t... 1 more\nCaused by: a.C: 3\n\t... 1 more\n")
	require.NoError(t, err)
	require.Len(t, tr.Blocks, 1)

	b := tr.Blocks[0].Cause()
	require.NotNil(t, b)
	assert.Equal(t, "a.B", b.Exception)
	require.NotNil(t, b.Cause())
	assert.Equal(t, "a.C", b.Cause().Exception)
}

func TestParse_DefaultPackageExceptions(t *testing.T) {
	tr, err := Parse("Exception in thread \"main\" y: boom\n\tat C.m(SourceFile:3)\nCaused by: y: inner\n\t... 1 more\nCaused by: dui\n")
	require.NoError(t, err)
	require.Len(t, tr.Blocks, 1)

	root := tr.Blocks[0]
	assert.Equal(t, "y", root.Exception)
	assert.Equal(t, ": boom", root.Message)
	require.NotNil(t, root.Cause())
	assert.Equal(t, "y", root.Cause().Exception)
	assert.Equal(t, ": inner", root.Cause().Message)
	require.NotNil(t, root.Cause().Cause())
	assert.Equal(t, "dui", root.Cause().Cause().Exception)
}

func TestParse_UnrecognizedLineAfterFramesStartsBlock(t *testing.T) {
	tr, err := Parse("x.Y: a\n\tat a.B.c(B.java:1)\n12:00:01 [main] INFO done\n")
	require.NoError(t, err)
	require.Len(t, tr.Blocks, 2)
	assert.Equal(t, "", tr.Blocks[1].Exception)
	assert.Equal(t, "12:00:01 [main] INFO done", tr.Blocks[1].Message)

	var visited int
	tr.Walk(func(*Block) { visited++ })
	assert.Equal(t, 2, visited)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("java.lang.X\n\tat broken\n\tat a.b(\n\tat Foo(x)\n\tat a.b.9c(C.java:1)\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, rerrors.ErrParse))

	var errs parsing.ParseErrors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 4)

	assert.Equal(t, 2, errs[0].Line)
	assert.Equal(t, 11, errs[0].Column)
	assert.Equal(t, []string{`"("`}, errs[0].Expected)

	assert.Equal(t, "unterminated frame location", errs[1].Message)
	assert.Equal(t, []string{`")"`}, errs[1].Expected)

	assert.Equal(t, "frame has no method name", errs[2].Message)
	assert.Equal(t, "malformed method name", errs[3].Message)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse("")
	var errs parsing.ParseErrors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, "empty stack trace", errs[0].Message)
}

func TestExceptionNameEnd(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"java.lang.Error: boom", "java.lang.Error"},
		{"java.lang.Error", "java.lang.Error"},
		{"a.b.C$Inner:x", "a.b.C$Inner"},
		{"Done.", ""},
		{"Error: boom", "Error"},
		{"y: inner", "y"},
		{"dui", "dui"},
		{"y:", "y"},
		{"java.lang.Error boom", ""},
		{"1y: boom", ""},
		{"a..b: boom", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in[:exceptionNameEnd(tt.in)])
		})
	}
}
