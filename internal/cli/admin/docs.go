package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lexora-ai/lexora/internal/pagination"
	"github.com/lexora-ai/lexora/internal/repository"
)

func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage documents",
		Long:  "Inspect and requeue ingested documents",
	}

	cmd.AddCommand(DocsListCmd())
	cmd.AddCommand(DocsRequeueCmd())

	return cmd
}

func DocsListCmd() *cobra.Command {
	var (
		ownerID int64
		limit   int
		cursor  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runDocsList(ownerID, outputFormat, limit, cursor)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().Int64Var(&ownerID, "owner", 0, "Owner user ID (required)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runDocsList(ownerID int64, outputFormat string, limit int, cursorStr string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	docRepo := repository.NewDocumentRepository(pool)

	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return fmt.Errorf("invalid cursor: %w", err)
	}
	result, err := docRepo.ListByOwnerWithCursor(ctx, ownerID, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(result.Items))
		for i, d := range result.Items {
			data[i] = map[string]interface{}{
				"id":          d.ID,
				"title":       d.Title,
				"visibility":  d.Visibility,
				"status":      d.Status,
				"stage":       d.Stage,
				"chunk_count": d.ChunkCount,
				"updated_at":  d.UpdatedAt,
			}
		}
		output := map[string]interface{}{
			"items":    data,
			"cursor":   result.NextCursor,
			"has_more": result.HasMore,
		}
		jsonBytes, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(result.Items) == 0 {
			fmt.Println("No documents found")
			return nil
		}
		fmt.Println("Documents:")
		for _, d := range result.Items {
			fmt.Printf("  %d: %s [%s/%s, stage %s, %d chunks]\n", d.ID, d.Title, d.Visibility, d.Status, d.Stage, d.ChunkCount)
		}
		if result.HasMore && result.NextCursor != "" {
			fmt.Printf("\nMore results available. Use --cursor %s\n", result.NextCursor)
		}
	}

	return nil
}

func DocsRequeueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requeue <document-id>",
		Short: "Requeue a document for ingestion",
		Long:  "Put a document back into processing; the ingest worker rebuilds its chunks and embeddings",
		Args:  cobra.ExactArgs(1),
		RunE:  runDocsRequeue,
	}

	return cmd
}

func runDocsRequeue(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id: %s", args[0])
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	docRepo := repository.NewDocumentRepository(pool)

	if _, err := docRepo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	if err := docRepo.MarkProcessing(ctx, id); err != nil {
		return fmt.Errorf("failed to requeue document: %w", err)
	}

	fmt.Printf("Document %d requeued for ingestion\n", id)
	return nil
}
