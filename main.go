package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/orderdesk-ai/server/internal/agent/graph"
	"github.com/orderdesk-ai/server/internal/agent/model"
	"github.com/orderdesk-ai/server/internal/agent/repo"
	"github.com/orderdesk-ai/server/internal/auditlog"
	"github.com/orderdesk-ai/server/internal/core"
	"github.com/orderdesk-ai/server/internal/escalate"
	"github.com/orderdesk-ai/server/internal/notify"
	"github.com/orderdesk-ai/server/internal/orders"
	"github.com/orderdesk-ai/server/internal/retrieval"
	logx "github.com/orderdesk-ai/server/pkg/logger"
	pkgredis "github.com/orderdesk-ai/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the support agent,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	NLU          model.NLUModelConfig
	Response     model.ResponseModelConfig
	Retrieval    model.RetrievalConfig
	Resolver     model.ResolverConfig
	Policy       model.PolicyConfig
	Supervisor   model.SupervisorConfig
	Notify       model.NotifyConfig
	Audit        model.AuditConfig
	Orders       model.OrdersConfig
	Conversation model.ConversationConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.FromEnv(), Quiet: true})

	rdb, err := envCfg.Redis.New(ctx)
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	store, err := orders.NewStore(envCfg.Orders.DBPath)
	if err != nil {
		log.Fatalf("Failed to open order store: %v", err)
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to query order store: %v", err)
	}
	if count == 0 && envCfg.Orders.CSVPath != "" {
		if _, statErr := os.Stat(envCfg.Orders.CSVPath); statErr == nil {
			n, ingestErr := store.IngestCSV(ctx, envCfg.Orders.CSVPath)
			if ingestErr != nil {
				log.Fatalf("Failed to ingest orders CSV: %v", ingestErr)
			}
			fmt.Printf("Ingested %d orders from %s\n", n, envCfg.Orders.CSVPath)
		}
	}

	embed := retrieval.NewEmbedClient(retrieval.EmbedConfig{
		BaseURL: envCfg.Retrieval.EmbedBaseURL,
		Model:   envCfg.Retrieval.EmbedModel,
	})
	orderIndex := retrieval.NewIndex("orders", envCfg.Retrieval.OrdersIndexPath, embed)
	kbIndex := retrieval.NewIndex("kb", envCfg.Retrieval.KBIndexPath, embed)
	orderIndex.Warm()
	kbIndex.Warm()
	fmt.Printf("Indexes loaded: orders=%d kb=%d\n", orderIndex.Len(), kbIndex.Len())

	logs := auditlog.NewLogs(envCfg.Audit)
	esc := escalate.NewService(notify.FromConfig(envCfg.Notify), logs.Handoffs)

	runner, err := graph.BuildSupportGraph(ctx, graph.Config{
		APIKey:        envCfg.APIKey,
		BaseURL:       envCfg.BaseURL,
		NLUModel:      envCfg.NLU,
		ResponseModel: envCfg.Response,
		Resolver:      envCfg.Resolver,
		Policy:        envCfg.Policy,
		Supervisor:    envCfg.Supervisor,
		TopK:          envCfg.Retrieval.TopK,
		OrderStore:    store,
		OrderIndex:    orderIndex,
		KBIndex:       kbIndex,
		Escalate:      esc,
		Metrics:       logs.Metrics,
		Actions:       logs.Actions,
	})
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}
	memories := repo.NewRedisMemoryRepository(rdb, ttl)

	runREPL(ctx, runner, memories)
}

// runREPL is a terminal chat loop that keeps conversation memory between
// turns and shows a small debug summary after each reply.
func runREPL(ctx context.Context, runner graph.Runner, memories model.MemoryRepository) {
	conversationID := uuid.NewString()
	showRaw := false

	fmt.Println("Order support agent (type 'exit' to quit)")
	fmt.Println("Commands: /mem show memory, /reset clear memory, /raw toggle raw result")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "":
			continue
		case "exit", "quit", ":q":
			fmt.Println("bye.")
			return
		case "/mem":
			mem, err := memories.Load(ctx, conversationID)
			if err != nil {
				fmt.Printf("could not load memory: %v\n", err)
				continue
			}
			printJSON("memory", mem)
			continue
		case "/reset":
			if err := memories.Clear(ctx, conversationID); err != nil {
				fmt.Printf("could not clear memory: %v\n", err)
				continue
			}
			fmt.Println("memory cleared.")
			continue
		case "/raw":
			showRaw = !showRaw
			fmt.Println("raw result:", showRaw)
			continue
		}

		mem, err := memories.Load(ctx, conversationID)
		if err != nil {
			fmt.Printf("could not load memory: %v\n", err)
			mem = model.NewConversationMemory()
		}

		res, err := runner.Invoke(ctx, model.TurnInput{
			ConversationID: conversationID,
			Query:          input,
			Memory:         mem,
		})
		if err != nil {
			fmt.Printf("ERROR running graph: %v\n", err)
			continue
		}

		if err := memories.Save(ctx, conversationID, res.Memory); err != nil {
			fmt.Printf("warning: could not persist memory: %v\n", err)
		}

		fmt.Println("\nASSISTANT:")
		fmt.Println(res.Output)
		printSummary(res)
		if showRaw {
			printJSON("raw result", res)
		}
	}
}

func printSummary(res *model.TurnResult) {
	fmt.Println("\n--- debug summary ---")
	fmt.Println("intent:", res.Intent)
	fmt.Println("facts:", summarizeFacts(res.Facts))
	if len(res.Actions) > 0 {
		printJSON("actions", res.Actions)
	}
	if len(res.Timings) > 0 {
		printJSON("timings", res.Timings)
	}
	if res.KBHits > 0 {
		fmt.Printf("kb_hits: %d\n", res.KBHits)
	}
}

func summarizeFacts(f *model.OrderFacts) string {
	if f == nil {
		return "no facts"
	}
	return fmt.Sprintf("order_id=%s, status=%s, paid=%.2f via %s, email=%s",
		f.OrderID, f.OrderStatus, f.TotalPayment, f.PaymentType, f.CustomerEmail)
}

func printJSON(label string, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%s: %v\n", label, v)
		return
	}
	fmt.Printf("%s:\n%s\n", label, b)
}
