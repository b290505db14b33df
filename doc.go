// Package tagdex embeds the tag index over enriched articles in a Go program.
//
// Articles come from an enrichment pipeline and are stored with their keywords and
// topic. Tags are user-defined labels with unique names; attaching a tag to an
// article keeps a reverse index so tag deletion cascades to every article.
//
//	client, _ := tagdex.New(ctx, tagdex.WithValkey("localhost:6379", ""))
//	defer client.Close()
//	_ = client.Provision(ctx) // once, destroys data
//
//	_, _ = client.BulkLoadArticles(ctx, records)
//	_, _ = client.CreateTag(ctx, "machine learning", "")
//	_, _ = client.AddTagToArticles(ctx, "machine learning", []int64{1, 2})
//	names, _ := client.FindTagsByPrefix(ctx, "mach")
//
// Mutations over several articles return one ItemResult per article. When only
// some apply the error matches ErrPartialFailure and the results are still returned.
package tagdex
