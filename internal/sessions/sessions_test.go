package sessions

import (
	"os"
	"path/filepath"
	"testing"

	ps "github.com/mitchellh/go-ps"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

func withProcesses(t *testing.T, self int, running map[int]string) {
	t.Helper()
	oldFind, oldPid := findProcessFunc, getpid
	t.Cleanup(func() {
		findProcessFunc = oldFind
		getpid = oldPid
	})

	getpid = func() int { return self }
	findProcessFunc = func(pid int) (ps.Process, error) {
		exe, ok := running[pid]
		if !ok {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: exe}, nil
	}
}

func writeLock(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAcquireAndRelease(t *testing.T) {
	withProcesses(t, 100, nil)
	dir := filepath.Join(t.TempDir(), "sessions")

	lock, err := Acquire(dir, "/tmp/weekplan.db", "default")
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dir, "100.lock"))
	if err != nil {
		t.Fatalf("lockfile not written: %v", err)
	}
	if string(content) != "100|/tmp/weekplan.db|default" {
		t.Errorf("lockfile content = %q", content)
	}

	if err := lock.Release(); err != nil {
		t.Errorf("Release() failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "100.lock")); !os.IsNotExist(err) {
		t.Error("lockfile still exists after Release()")
	}
}

func TestAcquireRejectsSeparator(t *testing.T) {
	withProcesses(t, 100, nil)
	if _, err := Acquire(t.TempDir(), "a|b", "default"); err == nil {
		t.Error("Acquire() should reject a store containing '|'")
	}
}

func TestOthers(t *testing.T) {
	withProcesses(t, 100, map[int]string{
		100: "weekplan",
		200: "weekplan",
		300: "weekplan",
		400: "bash",
	})
	dir := t.TempDir()
	store := "/home/me/.config/weekplan/weekplan.db"

	writeLock(t, dir, "100.lock", "100|"+store+"|default")
	writeLock(t, dir, "200.lock", "200|"+store+"|work")
	writeLock(t, dir, "300.lock", "300|/other.db|default")
	stalePID := writeLock(t, dir, "400.lock", "400|"+store+"|default")
	dead := writeLock(t, dir, "500.lock", "500|"+store+"|default")
	malformed := writeLock(t, dir, "600.lock", "garbage")
	writeLock(t, dir, "notes.txt", "ignored")

	others, err := Others(dir, store)
	if err != nil {
		t.Fatalf("Others() failed: %v", err)
	}
	if len(others) != 1 {
		t.Fatalf("Others() = %+v, want one session", others)
	}
	if others[0].PID != 200 || others[0].Schedule != "work" {
		t.Errorf("Others()[0] = %+v", others[0])
	}

	for _, path := range []string{stalePID, dead, malformed} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("stale lockfile %s was not removed", filepath.Base(path))
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "100.lock")); err != nil {
		t.Error("own lockfile should be kept")
	}
}

func TestOthersMissingDir(t *testing.T) {
	others, err := Others(filepath.Join(t.TempDir(), "absent"), "x")
	if err != nil || others != nil {
		t.Errorf("Others() = %v, %v, want nil, nil", others, err)
	}
}

func TestParseLock(t *testing.T) {
	tests := []struct {
		content string
		wantErr bool
	}{
		{"42|/tmp/a.db|default", false},
		{"42|postgresql|work\n", false},
		{"42|/tmp/a.db", true},
		{"abc|/tmp/a.db|default", true},
		{"0|/tmp/a.db|default", true},
		{"42|/tmp/a.db| ", true},
	}
	for _, tt := range tests {
		_, err := parseLock(tt.content)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLock(%q) error = %v, wantErr %v", tt.content, err, tt.wantErr)
		}
	}
}
