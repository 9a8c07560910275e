// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package completion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "delineate-monitor"}
	root.AddCommand(NewCommand())
	return root
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			root := newRoot()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})

			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s: %v", shell, err)
			}
			if !strings.Contains(out.String(), "delineate-monitor") {
				t.Errorf("%s script does not mention the binary", shell)
			}
		})
	}
}

func TestCompletionCommand_RejectsUnknownShell(t *testing.T) {
	root := newRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"completion", "tcsh"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for unsupported shell")
	}
}

func TestCompleteLoadModes(t *testing.T) {
	got, directive := CompleteLoadModes(nil, nil, "")

	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("directive = %v, want NoFileComp", directive)
	}
	var names []string
	for _, c := range got {
		names = append(names, strings.SplitN(c, "\t", 2)[0])
	}
	if strings.Join(names, ",") != "check,start,health" {
		t.Errorf("modes = %v", names)
	}
}

func TestCompleteFileID(t *testing.T) {
	got, _ := CompleteFileID(nil, nil, "")
	if len(got) != 1 || !strings.HasPrefix(got[0], "70000") {
		t.Errorf("empty prefix: got %v", got)
	}

	got, directive := CompleteFileID(nil, []string{"1"}, "")
	if len(got) != 0 || directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("second arg: got %v, %v", got, directive)
	}

	got, _ = CompleteFileID(nil, nil, "12")
	if len(got) != 0 {
		t.Errorf("typed prefix: got %v", got)
	}
}

func TestSafeCompletionWrapper(t *testing.T) {
	got, directive := SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		panic("boom")
	})
	if len(got) != 0 || directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("panic: got %v, %v", got, directive)
	}

	got, _ = SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveDefault
	})
	if got == nil {
		t.Error("nil results should become an empty slice")
	}
}
