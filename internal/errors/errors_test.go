package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{name: "no match", code: "R001", wantMsg: "No route matched", wantCat: CategoryRouting},
		{name: "validation", code: "R003", wantMsg: "Validation failed", wantCat: CategoryValidation},
		{name: "redirect loop", code: "R005", wantMsg: "Too many redirects", wantCat: CategoryLoader},
		{name: "config", code: "R101", wantMsg: "Invalid configuration", wantCat: CategoryConfig},
		{name: "unknown error code", code: "R999", wantMsg: "Unknown error", wantCat: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.Equal(t, tt.wantCat, err.Category)
			assert.Equal(t, tt.code, err.Code)
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "file %q not found", "routes.yaml")
	assert.Equal(t, `file "routes.yaml" not found`, err.Message)
	assert.Equal(t, CategoryCLI, err.Category)
	assert.Empty(t, err.Code)
	assert.Equal(t, `file "routes.yaml" not found`, err.Error())
}

func TestErrorString(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := New("R004").WithRoute("/posts").Wrap(cause)
	assert.Equal(t, "R004: Loader failed (route /posts): boom", err.Error())
}

func TestUnwrap(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := New("R004").Wrap(fmt.Errorf("wrapped: %w", sentinel))

	assert.True(t, stderrors.Is(err, sentinel))

	var re *Error
	require.True(t, stderrors.As(fmt.Errorf("outer: %w", err), &re))
	assert.Equal(t, "R004", re.Code)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil, "R004"))

	plain := stderrors.New("plain")
	got := FromError(plain, "R004")
	assert.Equal(t, "R004", got.Code)
	assert.Same(t, plain, got.Wrapped)

	existing := New("R003")
	assert.Same(t, existing, FromError(fmt.Errorf("ctx: %w", existing), "R004"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "R005", CodeOf(fmt.Errorf("x: %w", New("R005"))))
	assert.Equal(t, "", CodeOf(stderrors.New("plain")))
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("R003").WithRoute("/posts/$postId").Wrap(stderrors.New("x must be an integer"))
	out := err.Format()

	assert.Contains(t, out, "ERROR R003: Validation failed")
	assert.Contains(t, out, "route /posts/$postId")
	assert.Contains(t, out, "cause: x must be an integer")
	assert.Contains(t, out, "Hint: Check the validator attached to the route.")
}

func TestFormatCompact(t *testing.T) {
	assert.Equal(t, "R001: No route matched [/x]", New("R001").WithRoute("/x").FormatCompact())
	assert.Equal(t, "free text", Newf(CategoryCLI, "free text").FormatCompact())
}

func TestMarshalJSON(t *testing.T) {
	err := New("R002").Wrap(stderrors.New("bad escape"))
	data, jerr := json.Marshal(err)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "R002", decoded["code"])
	assert.Equal(t, "routing", decoded["category"])
	assert.Equal(t, "bad escape", decoded["cause"])
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, New("R001"))
	assert.Contains(t, buf.String(), "ERROR R001")

	buf.Reset()
	Fprint(&buf, stderrors.New("plain failure"))
	assert.True(t, strings.Contains(buf.String(), "ERROR: plain failure"))
}

func TestWrapText(t *testing.T) {
	assert.Nil(t, wrapText("", 10))
	assert.Equal(t, []string{"short"}, wrapText("short", 10))
	assert.Equal(t, []string{"aaa bbb", "ccc"}, wrapText("aaa bbb ccc", 7))
}
