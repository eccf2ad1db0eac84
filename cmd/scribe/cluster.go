package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ternarybob/scribe/internal/models"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster <topic>",
	Short: "Suggest a pillar and supporting keywords for a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCluster,
}

var (
	clusterWebsiteID string
	clusterCount     int
	clusterModel     string
)

func init() {
	clusterCmd.Flags().StringVar(&clusterWebsiteID, "website", "", "Website ID to tailor suggestions to")
	clusterCmd.Flags().IntVar(&clusterCount, "count", 0, "Number of supporting keywords (3-15)")
	clusterCmd.Flags().StringVar(&clusterModel, "model", "", "Model override")
}

func runCluster(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	suggestion, err := application.ClusterGenerator.Suggest(context.Background(), models.ClusterRequest{
		Topic:     strings.Join(args, " "),
		WebsiteID: clusterWebsiteID,
		Count:     clusterCount,
		Model:     clusterModel,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(suggestion)
}
