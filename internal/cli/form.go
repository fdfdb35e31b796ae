package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mitchellmoss/appraisal-generator/internal/form"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// fieldLabels are the human labels for the editable fields.
var fieldLabels = map[string]string{
	types.FieldClientName:     "Client",
	types.FieldAddress1:       "Address 1",
	types.FieldAddress2:       "Address 2",
	types.FieldAppraisalDate:  "Date",
	types.FieldAppraiserName:  "Appraiser",
	types.FieldAppraisedValue: "Appraised Value",
}

type articleView struct {
	Number         int    `json:"number"`
	ID             string `json:"id"`
	Description    string `json:"description"`
	AppraisedValue string `json:"appraisedValue"`
}

type formView struct {
	State    string            `json:"state"`
	ID       string            `json:"id,omitempty"`
	Label    string            `json:"label,omitempty"`
	Fields   map[string]string `json:"fields"`
	Articles []articleView     `json:"articles"`
	Degraded bool              `json:"degraded,omitempty"`
}

func (ws *workspace) view() formView {
	v := formView{
		State:    ws.session.State().String(),
		ID:       ws.session.Binding().ID,
		Label:    ws.session.DisplayLabel(),
		Fields:   make(map[string]string, len(types.EditableFields)),
		Degraded: ws.form.Degraded(),
	}
	for _, name := range types.EditableFields {
		v.Fields[name], _ = ws.form.Field(name)
	}
	for i, a := range ws.form.Articles() {
		v.Articles = append(v.Articles, articleView{
			Number:         i + 1,
			ID:             a.ID,
			Description:    a.Description,
			AppraisedValue: a.AppraisedValue,
		})
	}
	return v
}

func writeFormView(w io.Writer, v formView) {
	if v.Label != "" {
		fmt.Fprintf(w, "Editing: %s\n", v.Label)
	} else {
		fmt.Fprintln(w, "New appraisal (not yet saved)")
	}
	if v.Degraded {
		fmt.Fprintln(w, "Warning: form cache unavailable, edits will not survive this command")
	}
	for _, name := range types.EditableFields {
		fmt.Fprintf(w, "%-16s %s\n", fieldLabels[name]+":", v.Fields[name])
	}
	fmt.Fprintln(w, "Articles:")
	for _, a := range v.Articles {
		desc := strings.ReplaceAll(a.Description, "\n", "\n      ")
		if a.AppraisedValue != "" {
			fmt.Fprintf(w, "  %2d. %s [%s]\n", a.Number, desc, a.AppraisedValue)
		} else {
			fmt.Fprintf(w, "  %2d. %s\n", a.Number, desc)
		}
	}
}

func newFormCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Show or edit the appraisal form",
	}
	cmd.AddCommand(newFormShowCmd(a), newFormSetCmd(a), newFormClearCmd(a))
	return cmd
}

func newFormShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the current form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			v := ws.view()
			return a.printResult(cmd, v, func(w io.Writer) { writeFormView(w, v) })
		},
	}
}

func newFormSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set a form field",
		Long: "Set one of: " + strings.Join(types.EditableFields, ", ") + ".\n" +
			"appraisedValue can only be set while the form has no articles.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			if err := ws.form.SetField(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			v := ws.view()
			return a.printResult(cmd, v, func(w io.Writer) { writeFormView(w, v) })
		},
	}
}

func newFormClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the form and start a new appraisal",
		Long:  "Discard every field and article, wipe the form cache and unbind from any saved record.\nThe record store is not touched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			if !confirmer(cmd, yes)("Clear the form? Unsaved changes will be lost.") {
				fmt.Fprintln(cmd.OutOrStdout(), "Clear cancelled")
				return nil
			}
			ws.session.NewRecord(cmd.Context())
			v := ws.view()
			return a.printResult(cmd, v, func(w io.Writer) { writeFormView(w, v) })
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newArticleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "article",
		Short: "Add, edit or remove article line items",
		Long:  "Articles are addressed by their 1-based position as shown by \"form show\".",
	}
	cmd.AddCommand(newArticleAddCmd(a), newArticleSetCmd(a), newArticleRemoveCmd(a))
	return cmd
}

func newArticleAddCmd(a *app) *cobra.Command {
	var item types.ArticleLineItem
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append an article",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			ws.form.AddArticle(cmd.Context(), item, true)
			v := ws.view()
			return a.printResult(cmd, v, func(w io.Writer) { writeFormView(w, v) })
		},
	}
	cmd.Flags().StringVarP(&item.Description, "description", "d", "", "article description")
	cmd.Flags().StringVarP(&item.AppraisedValue, "value", "v", "", "appraised value, e.g. $1,200.00")
	return cmd
}

func newArticleSetCmd(a *app) *cobra.Command {
	var description, value string
	cmd := &cobra.Command{
		Use:   "set <n>",
		Short: "Edit article n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			art, err := articleAt(ws.form, args[0])
			if err != nil {
				return err
			}
			item := art.ArticleLineItem
			if cmd.Flags().Changed("description") {
				item.Description = description
			}
			if cmd.Flags().Changed("value") {
				item.AppraisedValue = value
			}
			if err := ws.form.UpdateArticle(cmd.Context(), art.ID, item); err != nil {
				return err
			}
			v := ws.view()
			return a.printResult(cmd, v, func(w io.Writer) { writeFormView(w, v) })
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "article description")
	cmd.Flags().StringVarP(&value, "value", "v", "", "appraised value")
	return cmd
}

func newArticleRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <n>",
		Short: "Remove article n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			art, err := articleAt(ws.form, args[0])
			if err != nil {
				return err
			}
			if err := ws.form.RemoveArticle(cmd.Context(), art.ID); err != nil {
				return err
			}
			v := ws.view()
			return a.printResult(cmd, v, func(w io.Writer) { writeFormView(w, v) })
		},
	}
}

// articleAt resolves a 1-based position. Line-item IDs change on every
// load, so positions are the stable handle across commands.
func articleAt(f *form.Form, ref string) (form.Article, error) {
	n, err := strconv.Atoi(ref)
	articles := f.Articles()
	if err != nil || n < 1 || n > len(articles) {
		return form.Article{}, fmt.Errorf("%w: article %q (have %d)", form.ErrNoArticle, ref, len(articles))
	}
	return articles[n-1], nil
}
