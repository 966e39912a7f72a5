package internal

import "testing"

func TestModeSettersOverrideBuildDefaults(t *testing.T) {
	t.Cleanup(func() {
		SetQuiet(false)
		SetDebug(false)
		SetVerbose(false)
	})

	SetQuiet(true)
	if !IsQuiet() {
		t.Fatal("quiet mode not set")
	}
	SetQuiet(false)
	if IsQuiet() {
		t.Fatal("quiet mode not cleared")
	}

	SetDebug(true)
	if !IsDebug() {
		t.Fatal("debug mode not set")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Fatal("verbose mode not set")
	}
}
