package pgviews_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"

	"github.com/pgviews/pgviews"
	"github.com/pgviews/pgviews/view"
)

var (
	orders = view.MustNew("Orders",
		view.FromText("SELECT id, customer_id, total, placed_on FROM public.orders WHERE placed_on >= $1", "2026-01-01"),
		view.WithDescription("Orders placed this year"))

	bigSpenders = view.MustNew("BigSpenders",
		view.FromQuery(sq.Select("customer_id", "sum(total) AS spent").
			From("views.orders").
			GroupBy("customer_id").
			Having("sum(total) > 1000")),
		view.DependsOn(orders))

	dailyRevenue = view.MustNew("DailyRevenue",
		view.FromText("SELECT placed_on AS day, sum(total) AS revenue FROM views.orders GROUP BY placed_on"),
		view.DependsOn(orders),
		view.Materialized("day"))
)

// ExampleClient_Sort shows that dependencies always come first.
func ExampleClient_Sort() {
	client := pgviews.NewClient(pgviews.Options{})

	ordered, err := client.Sort([]*pgviews.View{dailyRevenue, bigSpenders, orders})
	if err != nil {
		log.Fatal(err)
	}
	for _, v := range ordered {
		fmt.Println(v.Name())
	}
	// Output:
	// orders
	// dailyrevenue
	// bigspenders
}

// ExampleClient_Plan prints the statements a sync would run.
func ExampleClient_Plan() {
	client := pgviews.NewClient(pgviews.Options{GrantTo: "analyst"})

	plans, err := client.Plan([]*pgviews.View{dailyRevenue, orders})
	if err != nil {
		log.Fatal(err)
	}
	for _, stmt := range plans[view.DefaultConnection] {
		fmt.Println(stmt.SQL)
	}
	// Output:
	// DROP SCHEMA IF EXISTS views CASCADE;
	// CREATE SCHEMA views;
	// CREATE VIEW views.orders AS SELECT id, customer_id, total, placed_on FROM public.orders WHERE placed_on >= $1;
	// CREATE MATERIALIZED VIEW views.dailyrevenue AS SELECT placed_on AS day, sum(total) AS revenue FROM views.orders GROUP BY placed_on;
	// CREATE UNIQUE INDEX dailyrevenue_day ON views.dailyrevenue (day);
	// GRANT USAGE ON SCHEMA views TO analyst;
	// GRANT SELECT ON views.orders TO analyst;
	// GRANT SELECT ON views.dailyrevenue TO analyst;
}

// ExampleClient_Sync demonstrates a sync against a live database.
func ExampleClient_Sync() {
	ctx := context.Background()

	db, err := sql.Open("pgx", "postgres://app@localhost:5432/app?default_query_exec_mode=simple_protocol")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	client := pgviews.NewClient(pgviews.Options{GrantTo: "analyst"})
	summary, err := client.Sync(ctx, pgviews.SyncOptions{
		Databases: map[string]*sql.DB{view.DefaultConnection: db},
		Views:     []*pgviews.View{orders, bigSpenders, dailyRevenue},
	})
	if err != nil {
		log.Fatal(err)
	}
	for conn, n := range summary.Counts() {
		fmt.Printf("%s: %d views\n", conn, n)
	}
}

// ExampleClient_Refresh refreshes a materialized view without blocking readers.
func ExampleClient_Refresh() {
	ctx := context.Background()

	db, err := sql.Open("pgx", "postgres://app@localhost:5432/app")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := pgviews.NewClient(pgviews.Options{}).Refresh(ctx, db, dailyRevenue, true); err != nil {
		log.Fatal(err)
	}
}

// ExampleSyncManifest syncs the views declared in a manifest file.
func ExampleSyncManifest() {
	summary, err := pgviews.SyncManifest(context.Background(), "pgviews.yaml")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(summary.Counts())
}
