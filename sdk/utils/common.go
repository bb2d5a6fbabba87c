// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

func getIniPath() string {
	if p := os.Getenv("BOLSTER_INI"); p != "" {
		return p
	}
	iniPath, err := os.UserHomeDir()
	if err != nil {
		iniPath = "."
	}
	return iniPath + string(os.PathSeparator) + IniName
}

func TranslateFormat(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	default:
		return "short"
	}
}

// Render writes v as indented JSON or YAML. The short format is left to the caller.
func Render(w io.Writer, v any, format string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	switch TranslateFormat(format) {
	case "yaml":
		y, err := yaml.JSONToYAML(b)
		if err != nil {
			return fmt.Errorf("json to yaml failed: %w", err)
		}
		_, err = w.Write(y)
		return err
	default:
		_, err = fmt.Fprintln(w, PrettyJSON(b))
		return err
	}
}

// Confirm asks a y/n question on out and reads the answer from in. An empty
// answer counts as def.
func Confirm(in io.Reader, out io.Writer, msg string, def bool) (bool, error) {
	buf := bufio.NewReader(in)
	for {
		fmt.Fprint(out, msg)
		userInput, err := buf.ReadString('\n')
		if err != nil && (err != io.EOF || userInput == "") {
			return false, fmt.Errorf("error in reading user input: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(userInput)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(out, "Invalid input, must be y or n")
		}
		if err == io.EOF {
			return false, nil
		}
	}
}

func PrettyJSON(b []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return string(b) // fallback non indentato
	}
	return out.String()
}
