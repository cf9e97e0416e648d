package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// ToolchainAvailable reports whether the assembler and linker named in opts
// can be found on PATH.
func ToolchainAvailable(opts Options) bool {
	if _, err := exec.LookPath(opts.Nasm); err != nil {
		return false
	}
	_, err := exec.LookPath(opts.Linker)
	return err == nil
}

// Link assembles asm with nasm and links it with ld into an executable in
// dir. It returns the executable's path.
func Link(ctx context.Context, asm string, dir string, opts Options) (string, error) {
	asmFile := filepath.Join(dir, "prog.asm")
	objFile := filepath.Join(dir, "prog.o")
	exeFile := filepath.Join(dir, "prog")

	if err := os.WriteFile(asmFile, []byte(asm), 0644); err != nil {
		return "", fmt.Errorf("writing assembly: %w", err)
	}

	nasm := exec.CommandContext(ctx, opts.Nasm, "-felf64", "-o", objFile, asmFile)
	if out, err := nasm.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%s failed: %w\nOutput: %s", opts.Nasm, err, out)
	}

	entry := opts.Entry
	if entry == "" {
		entry = DefaultEntry
	}
	ld := exec.CommandContext(ctx, opts.Linker, "-e", entry, "-o", exeFile, objFile)
	if out, err := ld.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%s failed: %w\nOutput: %s", opts.Linker, err, out)
	}
	return exeFile, nil
}

// Execute builds asm in a temporary directory, runs it and returns its exit
// status. A non-zero status is not an error.
func Execute(ctx context.Context, asm string, opts Options, stdout, stderr io.Writer) (int, error) {
	dir, err := os.MkdirTemp("", "compiler-run-")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(dir)

	exe, err := Link(ctx, asm, dir, opts)
	if err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, exe)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err = cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
	}
	if err != nil {
		return 0, fmt.Errorf("running %s: %w", exe, err)
	}
	return 0, nil
}
