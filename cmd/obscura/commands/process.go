package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/obscura-io/obscura/agent"
	"github.com/obscura-io/obscura/agents"
	"github.com/obscura-io/obscura/audit"
	"github.com/obscura-io/obscura/config"
	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/errors"
	"github.com/obscura-io/obscura/inference"
	"github.com/obscura-io/obscura/logger"
	"github.com/obscura-io/obscura/pipeline"
	"github.com/obscura-io/obscura/rag"
)

// ProcessCmd runs one document through the full analysis pipeline.
var ProcessCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Analyze and anonymize a document",
	Long: `Run a document through the analysis pipeline: classification, entity
extraction, security assessment, anonymization, and reporting.

Structured documents (.json, as produced by the ingestion collaborator) are
processed section by section; any other file is treated as plain text. The
report and audit trail land in the configured output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

var processOutputDir string

func init() {
	ProcessCmd.Flags().StringVarP(&processOutputDir, "output", "o", "", "Output directory for reports and audit logs (overrides config)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if processOutputDir != "" {
		cfg.Audit.Dir = processOutputDir
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	if err := logger.Initialize(cfg.Logging.JSON, verbose || cfg.Logging.Verbose); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	defer logger.Cleanup()
	log := logger.Named("cli")

	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inf := inference.NewHTTPClient(cfg.Inference, log)
	if !inf.Healthy(ctx) {
		pterm.Warning.Printf("Inference server at %s is not responding; stages will retry\n", cfg.Inference.BaseURL)
	}

	var retriever rag.Retriever = rag.Noop{}
	if cfg.RAG.DatasetPath != "" {
		kb, err := rag.LoadKnowledgeBase(cfg.RAG.DatasetPath, log)
		if err != nil {
			return errors.Wrap(err, "failed to load knowledge base")
		}
		retriever = kb
	}

	registry := agent.NewRegistry(log)
	registry.Register(agents.NewUnderstanding(inf, retriever, log))
	registry.Register(agents.NewAnalysis(inf, cfg.Chunking, log))
	registry.Register(agents.NewAssessment(inf, log))
	registry.Register(agents.NewAnonymization(log))
	registry.Register(agents.NewReporting(cfg.Audit.Dir, cfg.EncryptionKey(), log))

	orch := pipeline.New(registry, cfg.Pipeline, log)
	orch.OnProgress(printStageProgress)

	pterm.DefaultSection.Printf("Processing %s", doc.FileName)
	result := orch.Run(ctx, doc)

	printRunSummary(result, cfg.Audit.Dir)

	if cfg.Audit.DBPath != "" {
		if err := persistRun(cfg.Audit.DBPath, result, log); err != nil {
			pterm.Warning.Printf("Could not persist run record: %v\n", err)
		}
	}

	if result.Status == pipeline.StatusAborted {
		return errors.Wrap(result.Err, "run aborted")
	}
	return nil
}

// loadConfig honors the --config flag and falls back to the default search
// paths.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// loadDocument reads a structured document from a .json file, or wraps any
// other file's content in a single text section.
func loadDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var doc document.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrapf(err, "failed to parse document %s", path)
		}
		if doc.FileName == "" {
			doc.FileName = filepath.Base(path)
		}
		return &doc, nil
	}

	hash := sha256.Sum256(data)
	return &document.Document{
		FileName:    filepath.Base(path),
		FileHash:    hex.EncodeToString(hash[:]),
		ContentType: document.ContentUnknown,
		PageCount:   1,
		Sections: []document.Section{
			{Type: "text", Text: string(data)},
		},
	}, nil
}

func printStageProgress(stage string, index, total int, status agent.Status) {
	label := fmt.Sprintf("[%d/%d] %s", index+1, total, stage)
	switch status {
	case agent.StatusCompleted:
		pterm.Success.Println(label)
	case agent.StatusTimeout:
		pterm.Error.Printf("%s timed out\n", label)
	case agent.StatusCancelled:
		pterm.Warning.Printf("%s cancelled\n", label)
	default:
		pterm.Error.Printf("%s failed\n", label)
	}
}

func printRunSummary(result pipeline.RunResult, outputDir string) {
	state := result.State

	rows := pterm.TableData{
		{"Run ID", result.RunID},
		{"Status", string(result.Status)},
		{"Document type", orNA(state.DocumentType)},
		{"Entities", fmt.Sprintf("%d", len(state.FinalEntities()))},
		{"Relationships", fmt.Sprintf("%d", len(state.Relationships))},
		{"Findings", fmt.Sprintf("%d", len(state.Findings))},
		{"Duration", result.Duration().Round(time.Millisecond).String()},
	}
	if s := state.AnonymizationSummary; s != nil {
		rows = append(rows, []string{
			"Anonymization",
			fmt.Sprintf("%d redacted, %d tokenized, %d preserved", s.Redacted, s.Tokenized, s.Preserved),
		})
	}
	if state.MarkdownReport != "" {
		stem := strings.TrimSuffix(filepath.Base(result.FileName), filepath.Ext(result.FileName))
		rows = append(rows, []string{"Report", filepath.Join(outputDir, stem+"_report.md")})
	}

	pterm.Println()
	_ = pterm.DefaultTable.WithData(rows).Render()

	switch result.Status {
	case pipeline.StatusSuccess:
		pterm.Success.Println("Pipeline completed")
	case pipeline.StatusPartial:
		pterm.Warning.Println("Pipeline completed with optional-stage failures")
	case pipeline.StatusAborted:
		pterm.Error.Printf("Pipeline aborted: %v\n", result.Err)
	}
}

func persistRun(dbPath string, result pipeline.RunResult, log *zap.SugaredLogger) error {
	store, err := audit.OpenRunStore(dbPath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	var abortReason string
	if result.Err != nil {
		abortReason = result.Err.Error()
	}

	state := result.State
	return store.SaveRun(audit.RunRecord{
		RunID:         result.RunID,
		FileName:      result.FileName,
		DocumentType:  state.DocumentType,
		Status:        string(result.Status),
		Entities:      len(state.FinalEntities()),
		Relationships: len(state.Relationships),
		Findings:      len(state.Findings),
		Summary:       state.AnonymizationSummary,
		Error:         abortReason,
		StartedAt:     result.StartedAt,
		CompletedAt:   result.CompletedAt,
	})
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
