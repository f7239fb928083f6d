package app

import (
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	op := NewOperation("run-1", "backup", "/saves/slot1.sav")

	if op.RunID != "run-1" {
		t.Errorf("RunID = %q, want %q", op.RunID, "run-1")
	}
	if op.Command != "backup" {
		t.Errorf("Command = %q, want %q", op.Command, "backup")
	}
	if op.Args != "/saves/slot1.sav" {
		t.Errorf("Args = %q, want %q", op.Args, "/saves/slot1.sav")
	}
	if op.Status() != "success" {
		t.Errorf("Status() = %q, want %q", op.Status(), "success")
	}
}

func TestOperation_Fail(t *testing.T) {
	op := NewOperation("run-1", "watch", "")
	op.Fail()
	op.Fail()
	if op.Status() != "error" {
		t.Errorf("Status() = %q, want %q", op.Status(), "error")
	}
}

func TestOperation_Journaled(t *testing.T) {
	tests := []struct {
		command string
		want    bool
	}{
		{command: "backup", want: true},
		{command: "watch", want: true},
		{command: "restore", want: true},
		{command: "cleanup", want: true},
		{command: "ui", want: true},
		{command: "list", want: false},
		{command: "status", want: false},
		{command: "history", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			op := NewOperation("run-1", tt.command, "")
			if got := op.Journaled(); got != tt.want {
				t.Errorf("Journaled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOperation_Entry(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	op := NewOperation("run-7", "cleanup", "/saves/backup_history")
	op.Fail()

	e := op.Entry(now)
	if e.RunID != "run-7" || e.Kind != "run" || e.Detail != "cleanup" {
		t.Errorf("Entry() = %+v", e)
	}
	if e.Path != "/saves/backup_history" {
		t.Errorf("Path = %q", e.Path)
	}
	if e.Status != "error" {
		t.Errorf("Status = %q, want error", e.Status)
	}
	if !e.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, now)
	}
	if e.ID != 0 {
		t.Errorf("ID = %d, want 0 before recording", e.ID)
	}
}
