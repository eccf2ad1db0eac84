package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ternarybob/scribe/internal/models"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue a generation job for a keyword",
	Long: `Queues a job for an existing keyword (--keyword-id), or creates the keyword on a
website first (--website with --keyword). Jobs run when "scribe serve" is next started.`,
	RunE: runEnqueue,
}

var (
	enqueueKeywordID string
	enqueueWebsiteID string
	enqueueKeyword   string
	enqueueLength    string
	enqueueModel     string
	enqueuePublish   bool
	enqueueImage     bool
)

func init() {
	enqueueCmd.Flags().StringVar(&enqueueKeywordID, "keyword-id", "", "Existing keyword ID")
	enqueueCmd.Flags().StringVar(&enqueueWebsiteID, "website", "", "Website ID for a new keyword")
	enqueueCmd.Flags().StringVar(&enqueueKeyword, "keyword", "", "Keyword text to create on --website")
	enqueueCmd.Flags().StringVar(&enqueueLength, "length", "", "Content length: SHORT, MEDIUM, LONG or PILLAR")
	enqueueCmd.Flags().StringVar(&enqueueModel, "model", "", "Model override, e.g. claude-sonnet-4-5")
	enqueueCmd.Flags().BoolVar(&enqueuePublish, "publish", false, "Publish the article when generation completes")
	enqueueCmd.Flags().BoolVar(&enqueueImage, "image", true, "Generate a featured image")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	if enqueueKeywordID == "" && (enqueueWebsiteID == "" || strings.TrimSpace(enqueueKeyword) == "") {
		return fmt.Errorf("specify --keyword-id, or --website with --keyword")
	}

	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := context.Background()

	keywordID := enqueueKeywordID
	if keywordID == "" {
		if _, err := application.StorageManager.WebsiteStorage().GetWebsite(ctx, enqueueWebsiteID); err != nil {
			return err
		}
		kw := models.NewKeyword(enqueueWebsiteID, strings.Join(strings.Fields(enqueueKeyword), " "))
		kw.ContentLength = models.ContentLength(strings.ToUpper(enqueueLength))
		if err := application.StorageManager.KeywordStorage().SaveKeyword(ctx, kw); err != nil {
			return err
		}
		keywordID = kw.ID
		logger.Info().Str("keyword_id", kw.ID).Str("keyword", kw.Text).Msg("Keyword created")
	}

	jobID, err := application.JobQueue.Enqueue(ctx, models.JobInput{
		KeywordID:     keywordID,
		ContentLength: models.ContentLength(strings.ToUpper(enqueueLength)),
		AutoPublish:   enqueuePublish,
		GenerateImage: enqueueImage,
		Model:         enqueueModel,
	})
	if err != nil {
		return err
	}

	fmt.Println(jobID)
	return nil
}
