package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mitchellmoss/appraisal-generator/internal/reconcile"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// listDateLayout is how creation dates appear in the listing.
const listDateLayout = "Jan 2, 2006"

type saveView struct {
	ID        string    `json:"id"`
	Created   bool      `json:"created"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the form to the record store",
		Long: "Create a new record when the form is not bound, otherwise update the bound\n" +
			"record. If the bound record was deleted elsewhere a new one is created.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			res, err := ws.session.Save(cmd.Context())
			if err != nil {
				return err
			}
			v := saveView{ID: res.ID, Created: res.Created, CreatedAt: res.CreatedAt, UpdatedAt: res.UpdatedAt}
			v.Message = types.MessageUpdated
			if res.Created {
				v.Message = types.MessageCreated
			}
			return a.printResult(cmd, v, func(w io.Writer) {
				fmt.Fprintf(w, "%s (ID: %s)\n", v.Message, v.ID)
			})
		},
	}
}

func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Load a saved appraisal into the form",
		Long:  "Replace the form with the saved record. Unsaved edits are discarded.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			if err := ws.session.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			v := ws.view()
			return a.printResult(cmd, v, func(w io.Writer) { writeFormView(w, v) })
		},
	}
}

func newNewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new appraisal",
		Long:  "Clear the form and unbind it so the next save creates a new record.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			ws.session.NewRecord(cmd.Context())
			v := ws.view()
			return a.printResult(cmd, v, func(w io.Writer) { writeFormView(w, v) })
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Unbind the form from its saved record",
		Long:  "Keep the form contents but forget the bound record, so the next save creates a copy.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			ws.session.Reset(cmd.Context())
			v := ws.view()
			return a.printResult(cmd, v, func(w io.Writer) { writeFormView(w, v) })
		},
	}
}

type deleteView struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
	State   string `json:"state"`
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved appraisal",
		Long:  "Delete the record after confirmation. Deleting the bound record also clears the form.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			deleted, err := ws.session.Delete(cmd.Context(), args[0], confirmer(cmd, yes))
			if err != nil {
				return err
			}
			v := deleteView{ID: args[0], Deleted: deleted, Message: "Delete cancelled", State: ws.session.State().String()}
			if deleted {
				v.Message = types.MessageDeleted
			}
			return a.printResult(cmd, v, func(w io.Writer) { fmt.Fprintln(w, v.Message) })
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var search, sortKey string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved appraisals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := reconcile.ParseSortKey(sortKey)
			if err != nil {
				return err
			}
			ws := a.openWorkspace(cmd.Context())
			defer ws.Close()
			list, err := ws.session.List(cmd.Context(), search, key)
			if err != nil {
				return err
			}
			if list == nil {
				list = []types.Summary{}
			}
			bound := ws.session.Binding().ID
			return a.printResult(cmd, list, func(w io.Writer) { writeSummaries(w, list, bound) })
		},
	}
	keys := make([]string, len(reconcile.SortKeys))
	for i, k := range reconcile.SortKeys {
		keys[i] = string(k)
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only clients whose name contains this text")
	cmd.Flags().StringVar(&sortKey, "sort", string(reconcile.SortRecent), "sort order: "+strings.Join(keys, ", "))
	return cmd
}

func writeSummaries(w io.Writer, list []types.Summary, bound string) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No saved appraisals")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tCLIENT\tCREATED\tVALUE")
	for _, s := range list {
		marker := ""
		if s.ID == bound {
			marker = "*"
		}
		created := ""
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Local().Format(listDateLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", marker, s.ID, s.ClientName, created, s.AppraisedValue)
	}
	_ = tw.Flush()
}
