package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/utils"
)

// LoadFromDirectory registers every *.hjson and *.json prompt under dir,
// replacing built-ins with the same ID. Returns the number of files loaded.
//
//	dir/
//	  summary/
//	    profit_loss.hjson   -> "summary.profit_loss"
//	  custom.json           -> "custom"
func (r *Registry) LoadFromDirectory(dir string) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("prompts directory not found: %s", dir)
	}

	loaded := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		ext := filepath.Ext(path)
		if info.IsDir() || (ext != ".json" && ext != ".hjson") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		// Hjson is a superset of JSON, so both go through the same parser
		normalized, err := utils.ParseHJSON(string(data))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		var pt PromptTemplate
		if err := json.Unmarshal([]byte(normalized), &pt); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}

		// Auto-generate ID from path if not specified
		if pt.ID == "" {
			pt.ID = generateIDFromPath(path, dir)
		}
		if pt.Category == "" {
			pt.Category = detectCategory(path, dir)
		}

		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", pt.ID, err)
		}
		loaded++
		return nil
	})
	return loaded, err
}

// generateIDFromPath creates a prompt ID from the file path
// e.g., "summary/balance_sheet.hjson" -> "summary.balance_sheet"
func generateIDFromPath(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	relPath = strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return strings.ReplaceAll(relPath, string(filepath.Separator), ".")
}

// detectCategory extracts the category from the folder structure
func detectCategory(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	parts := strings.Split(relPath, string(filepath.Separator))
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

// RenderUserPrompt executes the user prompt template with the given context
func RenderUserPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	if pt.UserPromptTmpl == "" {
		return "", nil
	}

	tmpl, err := template.New(pt.ID).Option("missingkey=error").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.Variables); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
