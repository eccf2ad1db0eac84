package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Fail jobs stuck in PROCESSING past their lease",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp()
		if err != nil {
			return err
		}
		defer application.Close()

		n, err := application.JobQueue.RecoverStuckJobs(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Recovered %d job(s)\n", n)
		return nil
	},
}
