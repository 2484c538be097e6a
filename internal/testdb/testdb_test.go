package testdb

import "testing"

func TestSplitSQL(t *testing.T) {
	in := stripSQLComments(`-- header
CREATE TABLE a (id INT);

  -- indented comment
CREATE INDEX a_idx ON a (id);
`)
	got := splitSQL(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (id INT)" || got[1] != "CREATE INDEX a_idx ON a (id)" {
		t.Fatalf("unexpected statements %q", got)
	}
}

func TestRepoRootFindsModule(t *testing.T) {
	if _, err := repoRoot(); err != nil {
		t.Fatalf("repo root: %v", err)
	}
}
