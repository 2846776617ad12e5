package driver

import "testing"

func TestOptionsFromCLIDefaults(t *testing.T) {
	opt, err := optionsFromCLI([]string{"main.qd"}, map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Threads != 1 {
		t.Fatalf("Threads = %d, want default 1", opt.Threads)
	}
	if opt.OptLevel != 0 {
		t.Fatalf("OptLevel = %d, want default 0", opt.OptLevel)
	}
	if len(opt.Inputs) != 1 || opt.Inputs[0] != "main.qd" {
		t.Fatalf("Inputs = %v, want [main.qd]", opt.Inputs)
	}
}

func TestOptionsFromCLINoInputsErrors(t *testing.T) {
	if _, err := optionsFromCLI(nil, map[string]string{}); err == nil {
		t.Fatalf("expected an error for zero source files")
	}
}

func TestOptionsFromCLIRejectsOutOfRangeOptLevel(t *testing.T) {
	if _, err := optionsFromCLI([]string{"main.qd"}, map[string]string{"opt-level": "4"}); err == nil {
		t.Fatalf("expected an error for opt-level outside [0, 3]")
	}
}

func TestOptionsFromCLIParsesLinkPins(t *testing.T) {
	opt, err := optionsFromCLI([]string{"main.qd"}, map[string]string{"link": "json@1.2.0,http@2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Links["json"] != "1.2.0" || opt.Links["http"] != "2" {
		t.Fatalf("Links = %v, want json@1.2.0, http@2", opt.Links)
	}
}

func TestOptionsFromCLIRejectsLinkPinWithoutVersion(t *testing.T) {
	if _, err := optionsFromCLI([]string{"main.qd"}, map[string]string{"link": "json"}); err == nil {
		t.Fatalf("expected an error for a -l pin missing @version")
	}
}

func TestOptionsFromCLIThreadsBounds(t *testing.T) {
	if _, err := optionsFromCLI([]string{"main.qd"}, map[string]string{"threads": "0"}); err == nil {
		t.Fatalf("expected an error for threads below 1")
	}
	if _, err := optionsFromCLI([]string{"main.qd"}, map[string]string{"threads": "65"}); err == nil {
		t.Fatalf("expected an error for threads above maxThreads")
	}
	opt, err := optionsFromCLI([]string{"main.qd"}, map[string]string{"threads": "8"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Threads != 8 {
		t.Fatalf("Threads = %d, want 8", opt.Threads)
	}
}

func TestOptionsFromCLIBoolFlags(t *testing.T) {
	opt, err := optionsFromCLI([]string{"main.qd"}, map[string]string{
		"debug": "", "verbose": "", "dump-ast": "", "werror": "", "run": "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opt.Debug || !opt.Verbose || !opt.DumpAST || !opt.Werror || !opt.Run {
		t.Fatalf("bool flags not all set: %+v", opt)
	}
	if opt.DumpTokens || opt.DumpIR || opt.SaveTemps {
		t.Fatalf("unset bool flags should remain false: %+v", opt)
	}
}
