package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mbolis/quick-form/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// formFile is the YAML shape of a form definition:
//
//	title: Sleep diary
//	users: [alice@example.com]
//	inputs:
//	  - label: Mood
//	    description: How do you feel today?
//	    type: choice
//	    values: [Terrible, Fine, Great]
type formFile struct {
	Title  string   `yaml:"title"`
	Users  []string `yaml:"users"`
	Inputs []struct {
		Label       string   `yaml:"label"`
		Description string   `yaml:"description"`
		Type        string   `yaml:"type"`
		Values      []string `yaml:"values"`
	} `yaml:"inputs"`
}

func parseFormFile(b []byte) (model.Form, error) {
	var f formFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return model.Form{}, err
	}

	form := model.Form{
		Title:  f.Title,
		Users:  f.Users,
		Inputs: make([]model.InputField, 0, len(f.Inputs)),
	}
	for i, in := range f.Inputs {
		data, err := model.ParseInputData(model.InputType(in.Type), in.Values)
		if err != nil {
			return model.Form{}, fmt.Errorf("input %d: %w", i+1, err)
		}
		form.Inputs = append(form.Inputs, model.InputField{
			Label:       in.Label,
			Description: in.Description,
			Data:        data,
		})
	}
	return form, nil
}

func readFormFile(path string) (model.Form, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Form{}, err
	}
	return parseFormFile(b)
}

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Check and import form definitions",
}

var formCheckCmd = &cobra.Command{
	Use:   "check <file.yaml>",
	Short: "Print the issues of a form definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := readFormFile(args[0])
		if err != nil {
			return err
		}

		if err := form.Validate(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

var formImportCmd = &cobra.Command{
	Use:   "import <admin_id> <file.yaml>",
	Short: "Validate a form definition and store it as a new form",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		adminID := args[0]
		form, err := readFormFile(args[1])
		if err != nil {
			return err
		}
		if err := form.Validate(); err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		now := time.Now()
		form.ID = uuid.Must(uuid.NewV4()).String()
		form.AdminID = adminID
		form.Version = 1
		form.Created = now
		form.Updated = now
		err = st.Set(cmd.Context(), model.FormPath(adminID, form.ID), form)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), form.ID)
		return nil
	},
}

func init() {
	formCmd.AddCommand(formCheckCmd, formImportCmd)
}
