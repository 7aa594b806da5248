package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/techrules"
	"github.com/meikuraledutech/techrules/postgres"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Wire up the postgres implementation behind the Store interface.
	var store techrules.Store = postgres.New(pool)

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Bulk insert using refs ────────────────────────────────────────
	start, finish := techrules.NewStartNode(), techrules.NewFinishNode()
	start.Ref, finish.Ref = "start", "finish"
	fabric := techrules.NewTaskNode(techrules.TaskSpec{
		TaskType:     "CUT_FABRIC",
		WorkCenter:   "FAB",
		FormulasText: "# fabric\nfabric_length_mm = CEILING((height_mm + 20) * 1.01, 1)",
	})
	fabric.Ref = "fabric"
	roller := techrules.NewTaskNode(techrules.TaskSpec{TaskType: "ASM_ROLLER", WorkCenter: "ASM", Terminal: true})
	roller.Ref = "roller"

	g := &techrules.Graph{
		ID:    "roller-blind",
		Nodes: []techrules.Node{start, fabric, roller, finish},
		Edges: []techrules.Edge{
			{FromRef: "start", ToRef: "fabric"},
			{FromRef: "fabric", ToRef: "roller"},
			{FromRef: "roller", ToRef: "finish"},
		},
	}
	created, err := store.SaveGraph(ctx, g)
	if err != nil {
		log.Fatalf("save graph: %v", err)
	}
	fmt.Println("graph saved (bulk with refs)")
	printJSON(created)

	// ── Granular: add a profile cut feeding the roller ────────────────
	profile := techrules.NewTaskNode(techrules.TaskSpec{
		TaskType:     "CUT_PROFILE",
		WorkCenter:   "PRF",
		FormulasText: "tube_length_mm = ROUND(width_mm - 2, 0)",
	})
	profileID, err := store.AddNode(ctx, "roller-blind", &profile)
	if err != nil {
		log.Fatalf("add node: %v", err)
	}
	if _, err := store.AddEdge(ctx, "roller-blind", &techrules.Edge{From: profileID, To: created.Nodes[2].ID}); err != nil {
		log.Fatalf("add edge: %v", err)
	}
	fmt.Printf("\nadded node: %s\n", profileID)

	// ── Export ────────────────────────────────────────────────────────
	stored, err := store.GetGraph(ctx, "roller-blind")
	if err != nil {
		log.Fatalf("get graph: %v", err)
	}
	doc := techrules.NewExporter().Export(stored)
	fmt.Println("\nexport:")
	if err := techrules.Encode(os.Stdout, doc); err != nil {
		log.Fatalf("encode: %v", err)
	}

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteGraph(ctx, "roller-blind"); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\ngraph deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
