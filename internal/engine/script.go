package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mussels-build/mussels/internal/config"
	"github.com/mussels-build/mussels/internal/muserrors"
	"github.com/mussels-build/mussels/internal/version"
)

const configuredSentinel = "_mussels.configured"

// templateContext supplies the substitution tokens recognized in build
// scripts (spec.md §4.8 "Configure / Make / Install").
type templateContext struct {
	installRoot string
	includes    string
	libs        string
	build       string
	target      string
	toolchain   map[string]*struct{ Variables map[string]string }
}

// runScripts materializes and runs each present build_script phase in the
// fixed order {configure, make, install}. configure is skipped once the
// _mussels.configured sentinel exists; make and install always run when
// present (spec.md §4.8, Open Question (b)).
func (rc *recipeContext) runScripts(ctx context.Context, buildDir string, preexisted bool) error {
	_ = preexisted // superseded by the explicit configured sentinel below

	phases := rc.node.Variant.BuildScript.Present()
	if len(phases) == 0 {
		return nil
	}

	tmpl := rc.buildTemplateContext(buildDir)
	env := rc.toolPathEnv()

	logPath := rc.recipeLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return &muserrors.ScriptFailed{Phase: "setup", ExitCode: -1}
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return &muserrors.ScriptFailed{Phase: "setup", ExitCode: -1}
	}
	defer logFile.Close()

	configuredPath := filepath.Join(buildDir, configuredSentinel)

	for _, phase := range phases {
		if phase.Key == "configure" {
			if _, err := os.Stat(configuredPath); err == nil {
				rc.engine.Logger.Info("configure already done", "recipe", rc.node.Name)
				continue
			}
		}

		expanded, err := expandTemplate(phase.Script, tmpl)
		if err != nil {
			return &muserrors.ScriptFailed{Phase: phase.Key, ExitCode: -1}
		}

		scriptPath, err := materializeScript(buildDir, phase.Key, expanded)
		if err != nil {
			return &muserrors.ScriptFailed{Phase: phase.Key, ExitCode: -1}
		}

		fmt.Fprintf(logFile, "=== %s ===\n%s\n", phase.Key, expanded)
		exitCode, err := runScript(ctx, scriptPath, buildDir, env, logFile)
		if err != nil || exitCode != 0 {
			return &muserrors.ScriptFailed{Phase: phase.Key, ExitCode: exitCode}
		}

		if phase.Key == "configure" {
			os.WriteFile(configuredPath, nil, 0o644)
		}
	}

	return nil
}

func (rc *recipeContext) buildTemplateContext(buildDir string) templateContext {
	installRoot := rc.engine.Workspace.InstallDir
	targetDir := rc.engine.Workspace.InstallTargetDir(rc.engine.Target)

	toolVars := make(map[string]*struct{ Variables map[string]string })
	for _, ref := range rc.node.RequiredTools {
		parsed, err := version.ParseReference(ref)
		if err != nil {
			continue
		}
		if rec, ok := rc.engine.Toolchain[parsed.Name]; ok {
			toolVars[parsed.Name] = &struct{ Variables map[string]string }{Variables: rec.Variables}
		}
	}

	return templateContext{
		installRoot: filepath.ToSlash(installRoot),
		includes:    filepath.ToSlash(filepath.Join(targetDir, "include")),
		libs:        filepath.ToSlash(filepath.Join(targetDir, "lib")),
		build:       filepath.ToSlash(buildDir),
		target:      rc.engine.Target,
		toolchain:   toolVars,
	}
}

// expandTemplate substitutes every {identifier} or {identifier.field} token
// in script, failing on any identifier it does not recognize (spec.md §6
// "unknown identifiers are an error at template-expansion time").
func expandTemplate(script string, tmpl templateContext) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(script) {
		if script[i] != '{' {
			out.WriteByte(script[i])
			i++
			continue
		}
		end := strings.IndexByte(script[i:], '}')
		if end == -1 {
			return "", fmt.Errorf("unterminated template token at offset %d", i)
		}
		token := script[i+1 : i+end]
		i += end + 1

		value, err := resolveToken(token, tmpl)
		if err != nil {
			return "", err
		}
		out.WriteString(value)
	}
	return out.String(), nil
}

func resolveToken(token string, tmpl templateContext) (string, error) {
	switch token {
	case "install":
		return tmpl.installRoot, nil
	case "includes":
		return tmpl.includes, nil
	case "libs":
		return tmpl.libs, nil
	case "build":
		return tmpl.build, nil
	case "target":
		return tmpl.target, nil
	}

	if dot := strings.IndexByte(token, '.'); dot != -1 {
		toolName, field := token[:dot], token[dot+1:]
		tool, ok := tmpl.toolchain[toolName]
		if !ok {
			return "", fmt.Errorf("unknown tool %q referenced in template", toolName)
		}
		value, ok := tool.Variables[field]
		if !ok {
			return "", fmt.Errorf("tool %q has no variable %q", toolName, field)
		}
		return value, nil
	}

	return "", fmt.Errorf("unknown template identifier %q", token)
}

// materializeScript writes expanded as a POSIX shell script (or a .bat file
// on Windows), setting the executable bit on POSIX.
func materializeScript(buildDir, phase, expanded string) (string, error) {
	var scriptPath, content string
	if runtime.GOOS == "windows" {
		scriptPath = filepath.Join(buildDir, "_mussels_"+phase+".bat")
		content = expanded
	} else {
		scriptPath = filepath.Join(buildDir, "_mussels_"+phase+".sh")
		content = "#!/bin/sh\nset -e\n" + expanded + "\n"
	}

	if err := os.WriteFile(scriptPath, []byte(content), 0o755); err != nil {
		return "", err
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(scriptPath, 0o755); err != nil {
			return "", err
		}
	}
	return scriptPath, nil
}

// toolPathEnv builds the process environment for a recipe's subprocesses,
// prepending each toolchain entry's tool_path in declaration order (spec.md
// §4.8 "Run").
func (rc *recipeContext) toolPathEnv() []string {
	env := os.Environ()

	var prefixes []string
	seen := make(map[string]bool)
	for _, ref := range rc.node.RequiredTools {
		parsed, err := version.ParseReference(ref)
		if err != nil {
			continue
		}
		rec, ok := rc.engine.Toolchain[parsed.Name]
		if !ok || rec.ToolPath == "" || seen[rec.ToolPath] {
			continue
		}
		seen[rec.ToolPath] = true
		prefixes = append(prefixes, rec.ToolPath)
	}
	if len(prefixes) == 0 {
		return env
	}

	pathPrefix := strings.Join(prefixes, string(os.PathListSeparator))
	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = "PATH=" + pathPrefix + string(os.PathListSeparator) + kv[len("PATH="):]
			return env
		}
	}
	return append(env, "PATH="+pathPrefix)
}

// recipeLogPath returns the per-invocation log file path, named from the
// NVC and a timestamp (spec.md §4.9).
func (rc *recipeContext) recipeLogPath() string {
	ts := time.Now().UTC().Format("20060102T150405Z")
	filename := fmt.Sprintf("%s-%s@%s.%s.log", rc.node.Name, rc.node.Version, rc.node.Cookbook, ts)
	return filepath.Join(rc.engine.Workspace.RecipeLogsDir, filename)
}

// runScript executes scriptPath in workDir, streaming merged stdout+stderr
// line-by-line into logFile, and returns its exit code.
func runScript(ctx context.Context, scriptPath, workDir string, env []string, logFile io.Writer) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, config.GetScriptTimeout())
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, scriptPath)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", scriptPath)
	}
	cmd.Dir = workDir
	cmd.Env = env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, err
	}
	cmd.Stderr = cmd.Stdout // merge, per spec.md §4.8 "merged stdout+stderr"

	if err := cmd.Start(); err != nil {
		return -1, err
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Fprintln(logFile, scanner.Text())
	}

	err = cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
