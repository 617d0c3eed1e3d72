package registry

import (
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/dshills/agentcore/internal/agent"
)

const (
	maxCapabilities = 5
	maxExamples     = 3
)

// frontMatter is the optional YAML header of an agent file.
type frontMatter struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	Type         string   `yaml:"type"`
	Category     string   `yaml:"category"`
	Description  string   `yaml:"description"`
	Capabilities []string `yaml:"capabilities"`
	Examples     []string `yaml:"examples"`
}

// kindKeywords maps file name fragments to kinds. Order matters: the
// first fragment contained in the name wins.
var kindKeywords = []struct {
	keyword string
	kind    agent.Kind
}{
	{"frontend", agent.KindFrontend},
	{"backend", agent.KindBackend},
	{"mobile", agent.KindMobile},
	{"security", agent.KindSecurity},
	{"perf", agent.KindPerformance},
	{"debug", agent.KindGeneral},
	{"test", agent.KindGeneral},
	{"docs", agent.KindDocs},
	{"ai", agent.KindAI},
	{"auto", agent.KindWorkflow},
	{"agent", agent.KindGeneral},
}

var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"frontend", "Frontend"},
	{"backend", "Backend"},
	{"mobile", "Mobile"},
	{"security", "Security"},
	{"perf", "Performance"},
	{"docs", "Documentation"},
	{"ai", "AI/ML"},
	{"auto", "Automation"},
	{"test", "Testing"},
}

// Parse builds a descriptor from an agent file's id and contents.
func Parse(id string, data []byte) (Descriptor, error) {
	fm, body, err := splitFrontMatter(data)
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{Task: agent.Task{ID: id}}
	if fm.ID != "" {
		d.ID = fm.ID
	}

	kindName := fm.Kind
	if kindName == "" {
		kindName = fm.Type
	}
	if kindName != "" {
		k, err := agent.ParseKind(kindName)
		if err != nil {
			return Descriptor{}, err
		}
		d.Kind = k
	} else {
		d.Kind = InferKind(id)
	}

	d.Name = fm.Name
	if d.Name == "" {
		d.Name = DisplayName(id)
	}
	d.Category = fm.Category
	if d.Category == "" {
		d.Category = InferCategory(id)
	}
	d.Description = fm.Description
	if d.Description == "" {
		d.Description = extractDescription(body)
	}
	if d.Description == "" {
		d.Description = d.Name + " agent"
	}
	d.Capabilities = fm.Capabilities
	if len(d.Capabilities) == 0 {
		d.Capabilities = extractSection(body, maxCapabilities, "capabilities", "features")
	}
	d.Examples = fm.Examples
	if len(d.Examples) == 0 {
		d.Examples = extractSection(body, maxExamples, "example")
	}
	return d, nil
}

// splitFrontMatter separates a leading "---" YAML block from the body.
func splitFrontMatter(data []byte) (frontMatter, string, error) {
	var fm frontMatter
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return fm, text, nil
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return fm, "", fmt.Errorf("unterminated front matter")
	}

	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return fm, "", fmt.Errorf("front matter: %w", err)
	}

	body := rest[end+len("\n---"):]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return fm, body, nil
}

// InferKind picks a kind from keywords in an agent file name.
func InferKind(id string) agent.Kind {
	for _, kw := range kindKeywords {
		if strings.Contains(id, kw.keyword) {
			return kw.kind
		}
	}
	return agent.KindGeneral
}

// InferCategory picks a display category from an agent file name.
func InferCategory(id string) string {
	for _, kw := range categoryKeywords {
		if strings.Contains(id, kw.keyword) {
			return kw.category
		}
	}
	return "General"
}

// DisplayName turns "frontend-react-component" into
// "Frontend React Component".
func DisplayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// extractDescription returns the first heading, quote or plain line.
func extractDescription(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") || strings.HasPrefix(line, "> ") {
			return strings.TrimSpace(line[2:])
		}
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(line, "#") && !isBullet(line) {
			return trimmed
		}
	}
	return ""
}

// extractSection collects up to max bullet items following the first line
// that mentions one of the markers, stopping at a blank line.
func extractSection(body string, max int, markers ...string) []string {
	var items []string
	inSection := false
	inCode := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		if !inSection {
			lower := strings.ToLower(line)
			for _, m := range markers {
				if strings.Contains(lower, m) {
					inSection = true
					break
				}
			}
			continue
		}
		if isBullet(line) {
			items = append(items, strings.TrimSpace(line[2:]))
			if len(items) == max {
				break
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			if len(items) > 0 {
				break
			}
			// Allow one blank line between the heading and its list.
			continue
		}
	}
	return items
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ")
}
