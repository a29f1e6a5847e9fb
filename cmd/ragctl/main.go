// ragctl is a small CLI wrapper over the document-retrieval service: list,
// inspect, upload, delete, and query documents without going through the
// chat server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/flowhq/ragchat/internal/domain"
	"github.com/flowhq/ragchat/internal/retrieval"
)

var (
	baseURL string
	apiKey  string
)

func newClient() (*retrieval.Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("RAGCHAT_RETRIEVAL_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("retrieval API key is required (--api-key or RAGCHAT_RETRIEVAL_API_KEY)")
	}
	return retrieval.NewClient(baseURL, apiKey), nil
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func main() {
	// A missing .env is fine; the key can come from the environment.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Manage documents in the retrieval service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", "https://api.ragie.ai", "Retrieval service base URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "Retrieval service API key")

	root.AddCommand(
		listCmd(),
		getCmd(),
		statusCmd(),
		deleteCmd(),
		uploadCmd(),
		searchCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			docs, err := client.ListDocuments(ctx)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Println("No documents found")
				return nil
			}
			for _, doc := range docs {
				fmt.Printf("%s  %-16s %s\n", doc.ID, doc.Status, doc.Name)
			}
			fmt.Printf("\n%d documents\n", len(docs))
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			doc, err := client.GetDocument(ctx, args[0])
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("document %s not found", args[0])
				}
				return err
			}
			printDocument(doc)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show a document's processing status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			// Status transitions are driven entirely by the service, so
			// waiting means polling.
			for {
				ctx, cancel := cmdContext()
				doc, err := client.GetDocument(ctx, args[0])
				cancel()
				if err != nil {
					return err
				}

				fmt.Printf("%s: %s\n", doc.ID, doc.Status)
				if !wait || doc.Queryable() || doc.Status == domain.DocumentStatusFailed {
					return nil
				}
				time.Sleep(5 * time.Second)
			}
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the document is queryable or failed")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			if err := client.DeleteDocument(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted", args[0])
			return nil
		},
	}
}

func uploadCmd() *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			metadata := map[string]any{}
			if scope != "" {
				metadata["scope"] = scope
			}

			ctx, cancel := cmdContext()
			defer cancel()

			doc, err := client.UploadDocument(ctx, f.Name(), f, metadata)
			if err != nil {
				return err
			}
			fmt.Printf("Uploaded %s (id %s, status %s)\n", doc.Name, doc.ID, doc.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "Scope metadata value for the document")
	return cmd
}

func searchCmd() *cobra.Command {
	var topK int
	var rerank bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a retrieval query and print the scored chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			query := args[0]
			chunks, err := client.Retrieve(ctx, query, retrieval.RetrieveOptions{
				Rerank: rerank,
				TopK:   topK,
			})
			if err != nil {
				return err
			}
			if len(chunks) == 0 {
				fmt.Println("No chunks found")
				return nil
			}
			for i, c := range chunks {
				fmt.Printf("--- #%d score=%.4f doc=%s (%s)\n%s\n\n",
					i+1, c.Score, c.DocumentName, c.DocumentID, c.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 8, "Number of chunks to retrieve")
	cmd.Flags().BoolVar(&rerank, "rerank", true, "Apply the service's rerank pass")
	return cmd
}

func printDocument(doc *domain.Document) {
	fmt.Println("ID:      ", doc.ID)
	fmt.Println("Name:    ", doc.Name)
	fmt.Println("Status:  ", doc.Status)
	if doc.ChunkCount > 0 {
		fmt.Println("Chunks:  ", doc.ChunkCount)
	}
	if len(doc.Metadata) > 0 {
		fmt.Println("Metadata:")
		for k, v := range doc.Metadata {
			fmt.Printf("  %s: %v\n", k, v)
		}
	}
}
