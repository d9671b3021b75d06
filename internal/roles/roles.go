// Package roles defines the response profiles the chatbot can answer with.
// A profile decides whose side of an ADU permit discussion the assistant
// argues: the applicant's or the reviewing planner's.
package roles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	Applicant = "Applicant"
	Planner   = "Planner"

	// Default is the profile used when a conversation does not pick one.
	Default = Applicant
)

// Greeting opens every new conversation regardless of profile.
const Greeting = "How can I assist you with your ADU permit application?"

// Profile describes one response role.
type Profile struct {
	Name         string `yaml:"name"`
	Instructions string `yaml:"instructions"`
}

// Set maps a profile name to its definition.
type Set map[string]Profile

const applicantInstructions = "You are a chatbot for ADU permit discussions. Your role is that of an applicant " +
	"advocating for an ADU permit by persuasively citing the city's ADU ordinance. " +
	"For example, if asked, 'I'm preparing my application for an ADU permit. How does the ordinance justify an increased number of ADUs in my neighborhood?', " +
	"you should respond with a persuasive argument such as: 'According to section 3.2 of the ADUHandbookUpdate.pdf, the ordinance allows...'. " +
	"The uploaded documents include letters and ordinances, with the ADUHandbookUpdate.pdf (the statewide file) taking precedence over individual files. " +
	"Whenever possible, provide specific citations to ordinance sections that support the permit application."

const plannerInstructions = "You are a chatbot for ADU permit discussions. Your role is that of a city planner who is skeptical about an increased number of ADUs. " +
	"Your responses should be antagonistic, highlighting potential negative impacts of ADUs and questioning the applicant's interpretation of the ordinance. " +
	"For example, if asked, 'I'm preparing my application for an ADU permit. How does the ordinance justify an increased number of ADUs in my neighborhood?', " +
	"you should respond with a critical counterargument such as: 'The ordinance in section 3.2 of the ADUHandbookUpdate.pdf is ambiguous and does not fully address community impacts.' " +
	"The uploaded documents include letters and ordinances, with the ADUHandbookUpdate.pdf (the statewide file) taking precedence over individual files. " +
	"Whenever possible, provide specific citations to ordinance sections that support your perspective."

// Builtin returns the two shipped profiles.
func Builtin() Set {
	return Set{
		Applicant: {Name: Applicant, Instructions: applicantInstructions},
		Planner:   {Name: Planner, Instructions: plannerInstructions},
	}
}

// LoadDir merges YAML profile files from dir over the built-in set. Each
// file holds one profile. An empty dir returns the built-ins unchanged.
func LoadDir(dir string) (Set, error) {
	set := Builtin()
	if dir == "" {
		return set, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading roles dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("invalid profile %s: %w", path, err)
		}
		set[p.Name] = p
	}
	return set, nil
}

// Get looks a profile up by name.
func (s Set) Get(name string) (Profile, bool) {
	p, ok := s[name]
	return p, ok
}

// Names returns the profile names sorted lexically.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func validate(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(p.Instructions) == "" {
		return fmt.Errorf("instructions are required")
	}
	return nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
