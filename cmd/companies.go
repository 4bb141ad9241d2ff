package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leadgrid/tracker-cli/internal/company"
	"github.com/leadgrid/tracker-cli/internal/model"
)

var (
	companiesTenant string
	companiesStatus string
	companiesLimit  int
	companiesOffset int
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List identified companies for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if companiesTenant == "" {
			return model.ErrMissingTenant
		}
		switch companiesStatus {
		case "", "hot", "warm", "cold":
		default:
			return eris.Errorf("unknown status: %s", companiesStatus)
		}

		store, err := initCompanyStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		profiles, err := store.List(ctx, companiesTenant, company.Filter{
			Status: model.LeadStatus(companiesStatus),
			Limit:  companiesLimit,
			Offset: companiesOffset,
		})
		if err != nil {
			return eris.Wrap(err, "list companies")
		}

		if len(profiles) == 0 {
			fmt.Println("no companies found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DOMAIN\tNAME\tINDUSTRY\tVISITS\tSCORE\tSTATUS\tLAST VISIT")
		for _, p := range profiles {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				p.Domain, p.Name, p.Industry, p.TotalVisits, p.Score, p.Status,
				p.LastVisit.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	companiesCmd.Flags().StringVar(&companiesTenant, "tenant", "", "tenant id (required)")
	companiesCmd.Flags().StringVar(&companiesStatus, "status", "", "filter by lead status (hot|warm|cold)")
	companiesCmd.Flags().IntVar(&companiesLimit, "limit", 50, "max rows")
	companiesCmd.Flags().IntVar(&companiesOffset, "offset", 0, "rows to skip")
	rootCmd.AddCommand(companiesCmd)
}
