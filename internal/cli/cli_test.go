package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestEncryptCmdShape(t *testing.T) {
	cmd := newEncryptCmd()
	if cmd.Use != "encrypt <file>" {
		t.Errorf("Use = %q", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("RunE is nil")
	}
	if cmd.Flags().Lookup("type") == nil {
		t.Error("--type flag not found")
	}
}

func TestDecryptCmdRequiresMediaKey(t *testing.T) {
	cmd := newDecryptCmd()
	flag := cmd.Flags().Lookup("media-key")
	if flag == nil {
		t.Fatal("--media-key flag not found")
	}
	if got := flag.Annotations[cobra.BashCompOneRequiredFlag]; len(got) != 1 || got[0] != "true" {
		t.Error("--media-key is not marked required")
	}
}

func TestUploadCmdRequiresHost(t *testing.T) {
	cmd := newUploadCmd()
	cmd.SetArgs([]string{"/nonexistent/path/for/test"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when no --host is supplied")
	}
}

func TestRootCmdWiresAllSubcommands(t *testing.T) {
	root := NewRootCmd()
	AddCommands(root)

	want := []string{"encrypt", "decrypt", "upload", "download", "retry-request"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}
