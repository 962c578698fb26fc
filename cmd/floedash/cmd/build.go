package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const clientPackage = "./cmd/floeweb"

var (
	outDir      string
	releaseMode bool
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "build compiles the dashboard to WebAssembly.",
	Long: `
		Build compiles the browser client to main.wasm and copies wasm_exec.js
		from the Go distribution next to it. The output defaults to the static
		directory of the configuration.
	`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := outDir
		if dir == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir = cfg.Server.StaticDir
		}
		if err := Build(filepath.Join(dir, "main.wasm"), releaseMode); err != nil {
			return err
		}
		if err := CopyWasmExecJs(dir); err != nil {
			return err
		}
		if verbose {
			fmt.Println("built", filepath.Join(dir, "main.wasm"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory")
	buildCmd.Flags().BoolVarP(&releaseMode, "release", "r", false, "strip debug information")
}

// Build compiles the browser client to outputPath.
func Build(outputPath string, release bool) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("error creating output directory: %v", err)
	}
	args := buildArgs(outputPath, release)
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), "GOOS=js", "GOARCH=wasm")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build failed: %v", err)
	}
	return nil
}

func buildArgs(outputPath string, release bool) []string {
	args := []string{"build"}
	if release {
		args = append(args, "-trimpath", "-ldflags", "-s -w")
	}
	return append(args, "-o", outputPath, clientPackage)
}

// CopyWasmExecJs copies the wasm_exec.js file from the Go distribution to the specified destination directory.
func CopyWasmExecJs(destinationDir string) error {
	goRoot, err := goEnv("GOROOT")
	if err != nil {
		return err
	}
	source, err := wasmExecPath(goRoot)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destinationDir, os.ModePerm); err != nil {
		return fmt.Errorf("error creating destination directory: %v", err)
	}
	if err := copyFile(source, filepath.Join(destinationDir, "wasm_exec.js")); err != nil {
		return fmt.Errorf("error copying file: %v", err)
	}
	return nil
}

func goEnv(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	out, err := exec.Command("go", "env", key).Output()
	if err != nil {
		return "", fmt.Errorf("go env %s: %v", key, err)
	}
	return string(bytes.TrimSpace(out)), nil
}

// wasmExecPath finds wasm_exec.js under goRoot. Go 1.24 moved it from misc/wasm
// to lib/wasm.
func wasmExecPath(goRoot string) (string, error) {
	var tried []string
	for _, dir := range []string{"lib", "misc"} {
		p := filepath.Join(goRoot, dir, "wasm", "wasm_exec.js")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		tried = append(tried, p)
	}
	return "", fmt.Errorf("wasm_exec.js not found in %s", strings.Join(tried, ", "))
}

// copyFile is a helper function that copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err = io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}
