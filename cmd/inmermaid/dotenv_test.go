// ABOUTME: Tests for the .env loader: parsing forms, comments, and no-clobber behavior.
// ABOUTME: Each test writes its own file in a temp dir and uses t.Setenv for isolation.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDotEnv(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDotEnv_BasicAssignment(t *testing.T) {
	t.Setenv("INMERMAID_TEST_BASIC", "")
	os.Unsetenv("INMERMAID_TEST_BASIC")

	loadDotEnv(writeDotEnv(t, "INMERMAID_TEST_BASIC=hello\n"))

	if got := os.Getenv("INMERMAID_TEST_BASIC"); got != "hello" {
		t.Errorf("got %q, want hello", got)
	}
}

func TestLoadDotEnv_DoesNotClobber(t *testing.T) {
	t.Setenv("INMERMAID_TEST_KEEP", "original")

	loadDotEnv(writeDotEnv(t, "INMERMAID_TEST_KEEP=overwritten\n"))

	if got := os.Getenv("INMERMAID_TEST_KEEP"); got != "original" {
		t.Errorf("existing env clobbered: got %q", got)
	}
}

func TestLoadDotEnv_QuotesAndExport(t *testing.T) {
	for _, key := range []string{"INMERMAID_TEST_DQ", "INMERMAID_TEST_SQ", "INMERMAID_TEST_EXP"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	loadDotEnv(writeDotEnv(t, `
INMERMAID_TEST_DQ="double quoted"
INMERMAID_TEST_SQ='single quoted'
export INMERMAID_TEST_EXP=exported
`))

	if got := os.Getenv("INMERMAID_TEST_DQ"); got != "double quoted" {
		t.Errorf("double quoted: got %q", got)
	}
	if got := os.Getenv("INMERMAID_TEST_SQ"); got != "single quoted" {
		t.Errorf("single quoted: got %q", got)
	}
	if got := os.Getenv("INMERMAID_TEST_EXP"); got != "exported" {
		t.Errorf("export form: got %q", got)
	}
}

func TestLoadDotEnv_SkipsCommentsAndBlanks(t *testing.T) {
	t.Setenv("INMERMAID_TEST_CMT", "")
	os.Unsetenv("INMERMAID_TEST_CMT")

	loadDotEnv(writeDotEnv(t, `
# INMERMAID_TEST_CMT=commented

not a key value line
INMERMAID_TEST_CMT=real
`))

	if got := os.Getenv("INMERMAID_TEST_CMT"); got != "real" {
		t.Errorf("got %q, want real", got)
	}
}

func TestLoadDotEnv_ValueContainsEquals(t *testing.T) {
	t.Setenv("INMERMAID_TEST_EQ", "")
	os.Unsetenv("INMERMAID_TEST_EQ")

	loadDotEnv(writeDotEnv(t, "INMERMAID_TEST_EQ=a=b=c\n"))

	if got := os.Getenv("INMERMAID_TEST_EQ"); got != "a=b=c" {
		t.Errorf("got %q, want a=b=c", got)
	}
}

func TestLoadDotEnv_MissingFileIsSilent(t *testing.T) {
	loadDotEnv(filepath.Join(t.TempDir(), "absent.env"))
}
