package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"
)

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("Human.colin.R\n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "File name?", &out)
	if err != nil || got != "Human.colin.R" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "File name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetMultiline_StopsOnEmptyLine(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("first line\nsecond line\n\n"))
	var out bytes.Buffer
	got, err := GetMultiline(in, "Comment", &out)
	if err != nil {
		t.Fatal(err)
	}
	want := "first line\nsecond line"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGetMultiline_EOFEndsInput(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("only line"))
	var out bytes.Buffer
	got, err := GetMultiline(in, "Comment", &out)
	if err != nil || got != "only line" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetMultiline_ReadErrorPropagates(t *testing.T) {
	in := bufio.NewReader(iotest.ErrReader(errors.New("tty gone")))
	var out bytes.Buffer
	if _, err := GetMultiline(in, "Comment", &out); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	var out bytes.Buffer
	if _, err := GetPassword(&out); err == nil {
		t.Fatal("expected error")
	}
}
