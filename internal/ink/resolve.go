// Package ink inspects ink! smart contract workspaces through cargo.
package ink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bailuo/redspot/internal/config"
	"github.com/bailuo/redspot/internal/exec"
)

// MetadataCommand is the cargo invocation used to read a workspace.
var MetadataCommand = []string{"cargo", "metadata", "--no-deps", "--format-version", "1"}

// DefaultToolchain is used when neither an override nor the config names one.
const DefaultToolchain = "nightly"

// InkDependency is the crate that marks a package as a contract.
const InkDependency = "ink_lang"

// ErrExternalCommandFailed indicates an external tool exited unsuccessfully
// or produced output that couldn't be parsed.
var ErrExternalCommandFailed = errors.New("external command failed")

// CommandFailedError names the external command that failed.
type CommandFailedError struct {
	Command string
	Err     error
}

func (e *CommandFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("$ `%s` has failed", e.Command)
	}
	return fmt.Sprintf("$ `%s` has failed: %v", e.Command, e.Err)
}

func (e *CommandFailedError) Is(target error) bool { return target == ErrExternalCommandFailed }

func (e *CommandFailedError) Unwrap() error { return e.Err }

// Dependency is a dependency entry of a cargo package.
type Dependency struct {
	Name                string        `json:"name"`
	Source              string        `json:"source"`
	Req                 string        `json:"req"`
	Kind                *string       `json:"kind"`
	Rename              *string       `json:"rename"`
	Optional            bool          `json:"optional"`
	UsesDefaultFeatures bool          `json:"uses_default_features"`
	Features            []interface{} `json:"features"`
	Target              *string       `json:"target"`
	Registry            *string       `json:"registry"`
}

// Package is one package in cargo metadata output.
type Package struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	ID           string          `json:"id"`
	License      *string         `json:"license"`
	LicenseFile  *string         `json:"license_file"`
	Description  *string         `json:"description"`
	Source       *string         `json:"source"`
	Dependencies []Dependency    `json:"dependencies"`
	Targets      json.RawMessage `json:"targets"`
	Features     json.RawMessage `json:"features"`
	ManifestPath string          `json:"manifest_path"`
	Metadata     json.RawMessage `json:"metadata"`
	Publish      []string        `json:"publish"`
	Authors      []string        `json:"authors"`
	Categories   []string        `json:"categories"`
	Keywords     []string        `json:"keywords"`
	Readme       *string         `json:"readme"`
	Repository   *string         `json:"repository"`
	Edition      string          `json:"edition"`
	Links        *string         `json:"links"`
}

// DependsOn reports whether the package lists a dependency called name.
func (p Package) DependsOn(name string) bool {
	for _, d := range p.Dependencies {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Metadata is the output of cargo metadata.
type Metadata struct {
	Packages         []Package       `json:"packages"`
	WorkspaceMembers []string        `json:"workspace_members"`
	Resolve          json.RawMessage `json:"resolve"`
	TargetDirectory  string          `json:"target_directory"`
	Version          int             `json:"version"`
	WorkspaceRoot    string          `json:"workspace_root"`
	Metadata         json.RawMessage `json:"metadata"`
}

// GetResolvedWorkspace runs cargo metadata in the first of the current
// directory or findDir that holds a Cargo.toml. When neither does, cargo
// runs in the current directory and reports the error itself.
func GetResolvedWorkspace(ctx context.Context, runner exec.CommandRunner, findDir string) (*Metadata, error) {
	dirs := []string{"."}
	if findDir != "" {
		dirs = append(dirs, findDir)
	}

	workDir := ""
	for _, d := range dirs {
		if _, err := os.Stat(filepath.Join(d, "Cargo.toml")); err == nil {
			workDir = d
			break
		}
	}

	command := strings.Join(MetadataCommand, " ")
	out, err := runner.Run(ctx, workDir, MetadataCommand[0], MetadataCommand[1:]...)
	if err != nil {
		return nil, &CommandFailedError{Command: command, Err: err}
	}

	var md Metadata
	if err := json.Unmarshal(out, &md); err != nil {
		return nil, &CommandFailedError{Command: command, Err: fmt.Errorf("parse cargo metadata: %w", err)}
	}
	return &md, nil
}

// FilterContractPackages returns a copy of md whose packages are only the
// workspace members that depend on ink_lang.
func FilterContractPackages(md *Metadata) *Metadata {
	members := make(map[string]bool, len(md.WorkspaceMembers))
	for _, id := range md.WorkspaceMembers {
		members[id] = true
	}

	out := *md
	out.Packages = nil
	for _, p := range md.Packages {
		if members[p.ID] && p.DependsOn(InkDependency) {
			out.Packages = append(out.Packages, p)
		}
	}
	return &out
}

// Toolchain returns override if set, else the configured rust toolchain,
// else DefaultToolchain.
func Toolchain(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	if cfg != nil && cfg.Rust.Toolchain != "" {
		return cfg.Rust.Toolchain
	}
	return DefaultToolchain
}
