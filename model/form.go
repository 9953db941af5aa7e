package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"
)

type Form struct {
	ID      string       `json:"id,omitempty"`
	AdminID string       `json:"admin_id,omitempty"`
	Version int          `json:"version,omitempty"`
	Title   string       `json:"title"`
	Inputs  []InputField `json:"inputs"`
	Users   []string     `json:"users,omitempty"`
	Results []Result     `json:"results,omitempty"`
	Created time.Time    `json:"created,omitempty"`
	Updated time.Time    `json:"updated,omitempty"`
}

// InputField is one question of a form. It describes the question, never an answer.
type InputField struct {
	Description string    `json:"description"`
	Label       string    `json:"label"`
	Data        InputData `json:"-"`
}

// InputData is the closed union of answer kinds: ChoiceData, NumberData or StringData.
type InputData interface {
	Type() InputType
	inputData()
}

type InputType string

const (
	ChoiceType InputType = "choice"
	NumberType InputType = "number"
	StringType InputType = "string"
)

type ChoiceData struct {
	Values []string `json:"values"`
}

type NumberData struct{}

type StringData struct{}

func (ChoiceData) Type() InputType { return ChoiceType }
func (NumberData) Type() InputType { return NumberType }
func (StringData) Type() InputType { return StringType }

func (ChoiceData) inputData() {}
func (NumberData) inputData() {}
func (StringData) inputData() {}

type inputDataJSON struct {
	Type   InputType `json:"type"`
	Values []string  `json:"values,omitempty"`
}

type inputFieldJSON struct {
	Description string        `json:"description"`
	Label       string        `json:"label"`
	Data        inputDataJSON `json:"data"`
}

func (f InputField) MarshalJSON() ([]byte, error) {
	out := inputFieldJSON{
		Description: f.Description,
		Label:       f.Label,
	}
	switch data := f.Data.(type) {
	case ChoiceData:
		out.Data = inputDataJSON{Type: ChoiceType, Values: data.Values}
		if out.Data.Values == nil {
			out.Data.Values = []string{}
		}
	case NumberData:
		out.Data = inputDataJSON{Type: NumberType}
	case StringData:
		out.Data = inputDataJSON{Type: StringType}
	case nil:
		return nil, fmt.Errorf("input %q: missing data", f.Label)
	default:
		return nil, fmt.Errorf("input %q: unsupported data %T", f.Label, f.Data)
	}
	return json.Marshal(out)
}

func (f *InputField) UnmarshalJSON(b []byte) error {
	var in inputFieldJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	data, err := ParseInputData(in.Data.Type, in.Data.Values)
	if err != nil {
		return err
	}

	*f = InputField{
		Description: in.Description,
		Label:       in.Label,
		Data:        data,
	}
	return nil
}

// ParseInputData builds the union variant named by typ.
func ParseInputData(typ InputType, values []string) (InputData, error) {
	switch typ {
	case ChoiceType:
		if values == nil {
			values = []string{}
		}
		return ChoiceData{Values: values}, nil
	case NumberType:
		return NumberData{}, nil
	case StringType:
		return StringData{}, nil
	case "":
		return nil, fmt.Errorf("input data: missing type")
	default:
		return nil, fmt.Errorf("input data: unknown type %q", typ)
	}
}

var reNoIdent = regexp.MustCompile(`\W+`)

// FieldKeys returns the answer key of every input, in input order.
// Keys derive from labels; repeated keys get a "__N" suffix.
func FieldKeys(inputs []InputField) []string {
	keys := make([]string, len(inputs))
	taken := make(map[string]bool, len(inputs))
	for i, f := range inputs {
		base := strings.ToLower(f.Label)
		base = reNoIdent.ReplaceAllLiteralString(base, " ")
		base = strings.Join(strings.Fields(base), "_")
		if base == "" {
			base = fmt.Sprintf("field_%d", i+1)
		}

		key := base
		for n := 1; taken[key]; n++ {
			key = fmt.Sprintf("%s__%d", base, n)
		}
		taken[key] = true
		keys[i] = key
	}
	return keys
}

// SameInputs reports whether two input lists are identical, so that results
// keyed by one still line up with the other.
func SameInputs(a, b []InputField) bool {
	return slices.EqualFunc(a, b, func(x, y InputField) bool {
		return reflect.DeepEqual(x, y)
	})
}

// Public strips the data a respondent must not see.
func (f Form) Public() Form {
	f.Users = nil
	f.Results = nil
	return f
}

// Permits reports whether email may submit to the form. An empty user list admits everybody.
func (f Form) Permits(email string) bool {
	if len(f.Users) == 0 {
		return true
	}
	for _, u := range f.Users {
		if strings.EqualFold(u, email) {
			return true
		}
	}
	return false
}

// RemoveSession drops every result of the given session and reports how many were removed.
func (f *Form) RemoveSession(sessionID string) (removed int) {
	kept := f.Results[:0]
	for _, r := range f.Results {
		if r.SessionID == sessionID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if kept == nil {
		kept = []Result{}
	}
	f.Results = kept
	return
}
