package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/configured/internal/compiler"
	"github.com/roach88/configured/internal/schema"
)

// LoadResult contains the results of loading a catalog from a directory.
type LoadResult struct {
	Catalog   *compiler.Catalog // nil when Errors is non-empty
	Errors    []compiler.ValidationError
	Runtime   *schema.Runtime // owns every CUE value of the catalog
	FileCount int             // Number of CUE files found
}

// LoadError represents an error that prevented a catalog from being
// compiled at all.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadCatalog loads the CUE package in dir and compiles it into a catalog.
// A *LoadError is returned when the directory cannot be loaded; catalog
// problems are reported in LoadResult.Errors.
//
// Each call builds its values in a fresh runtime, so reloading (validate
// --watch) never grows a shared context.
func LoadCatalog(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	rt := schema.NewRuntime()
	var value cue.Value
	rt.Do(func(ctx *cue.Context) {
		value = ctx.BuildInstance(inst)
	})

	cat, errs := compiler.Compile(rt, value)
	return &LoadResult{
		Catalog:   cat,
		Errors:    errs,
		Runtime:   rt,
		FileCount: len(cueFiles),
	}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeRunConfig    = "E006" // Run config file unreadable
	ErrCodeDatabase     = "E007" // Database open or write error
	ErrCodeUnknownRef   = "E008" // Describe or plan reference not in catalog
	ErrCodeTransform    = "E009" // Mapping function failed
	ErrCodeInvalidFlags = "E010" // Flag combination rejected
)
