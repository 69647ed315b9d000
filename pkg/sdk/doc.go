// Package tradesearch embeds the trade search engine in a Go program.
//
// The client reads trades from a SQLite record store, turns free text into
// structured filters with a generative model, ranks the matches and keeps a
// per-user query history.
//
//	client, _ := tradesearch.New(ctx,
//	    tradesearch.WithDatabase("./data/trades.db"),
//	    tradesearch.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini"),
//	    tradesearch.WithInMemoryCache(),
//	)
//	defer client.Close()
//
//	res, _ := client.Search(ctx, "u1", "cleared equity trades at LCH last week")
//	for _, r := range res.Results {
//	    fmt.Println(r.Trade.ID, r.Score)
//	}
//
//	recent, _ := client.History("u1").List(ctx, 10)
//
// Manual searches skip the model:
//
//	res, _ := client.SearchManual(ctx, "u1", tradesearch.ManualFilters{
//	    Statuses: []string{"REJECTED"},
//	    DateFrom: "2024-01-01",
//	})
package tradesearch
