// Package vidsearch embeds the semantic video search pipeline in a Go program,
// backed by Valkey, Redis or a local bbolt file.
//
// A search expands the query into paraphrases with a chat model, embeds every
// variant, scores the corpus by cosine similarity, merges the per-variant
// lists and asks the model to rerank the pool. Provider failures degrade the
// search instead of failing it.
//
//	client, _ := vidsearch.New(ctx,
//	    vidsearch.WithBolt("data/vidsearch.db"),
//	    vidsearch.WithOpenAI(os.Getenv("OPENAI_API_KEY"), ""),
//	)
//	defer client.Close()
//
//	client.PutItems(ctx, []vidsearch.Item{
//	    {ID: "tram-28", Title: "Tram 28 at dawn", Location: "Lisbon"},
//	}, nil)
//
//	res, _ := client.Search(ctx, "old trams on steep streets", vidsearch.SearchOptions{Limit: 3})
//	_, _ = client.SubmitFeedback(ctx, res.SearchID, "user-1", true)
package vidsearch
