package tools

import (
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
)

// NewDefaultRegistry registers calculator, file_reader, memory_search when
// searcher is non-nil, and python_executor.
func NewDefaultRegistry(cfg config.ToolsConfig, searcher Searcher, logger *logging.Logger) (*Registry, error) {
	r := NewRegistry(WithMaxOutputBytes(cfg.MaxOutputBytes), WithLogger(logger))
	builtins := []Tool{Calculator(), FileReader(cfg.FileReader)}
	if searcher != nil {
		builtins = append(builtins, MemorySearch(searcher))
	}
	builtins = append(builtins, PythonExecutor(cfg.PythonExecutor))
	for _, t := range builtins {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
