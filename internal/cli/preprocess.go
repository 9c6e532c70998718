package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/joho/godotenv"
)

type templateContext struct {
	ENV map[string]string
}

var missingKeyRegex = regexp.MustCompile(`map has no entry for key "(.*?)"`)

// PreprocessYAML replaces {{ .ENV.VAR }} placeholders with values from the environment.
// Variables missing from the environment are looked up in a .env file in the current
// working directory and then in the given extra files. The environment always wins.
func PreprocessYAML(inputRaw []byte, envFiles ...string) ([]byte, error) {
	input := string(inputRaw)
	if !strings.Contains(input, "{{") {
		return inputRaw, nil
	}

	envMap := map[string]string{}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	files := append([]string{filepath.Join(cwd, ".env")}, envFiles...)
	for i := len(files) - 1; i >= 0; i-- {
		vars, err := godotenv.Read(files[i])
		if err != nil {
			continue // no .env file
		}
		for k, v := range vars {
			envMap[k] = v
		}
	}
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			envMap[k] = v
		}
	}

	tmpl, err := template.New("yaml").Option("missingkey=error").Parse(input)
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	if err := tmpl.Execute(&output, templateContext{ENV: envMap}); err != nil {
		matches := missingKeyRegex.FindStringSubmatch(err.Error())
		if len(matches) == 2 {
			return nil, fmt.Errorf("missing environment variable: %s (set it in your shell or .env file)", matches[1])
		}
		return nil, fmt.Errorf("template error: %w", err)
	}

	return output.Bytes(), nil
}
