package common

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestAppErrorIsSentinel(t *testing.T) {
	cause := &fs.PathError{Op: "open", Path: "/x.pdf", Err: fs.ErrPermission}
	err := fmt.Errorf("fingerprint: %w", NewIOError("open document", cause))

	if !errors.Is(err, ErrIO) {
		t.Fatal("expected ErrIO")
	}
	if errors.Is(err, ErrStore) {
		t.Fatal("IO error must not match ErrStore")
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatal("cause chain lost")
	}
	var app *AppError
	if !errors.As(err, &app) || app.Code != CodeIO {
		t.Fatalf("errors.As failed: %v", err)
	}
}

func TestWrapErrorNil(t *testing.T) {
	if WrapError(nil, "x") != nil {
		t.Fatal("wrapping nil must stay nil")
	}
}
