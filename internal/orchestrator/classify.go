package orchestrator

import "strings"

// intentRules are checked in order. The first rule whose keywords match
// wins, so the more specific intents come first.
var intentRules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentMarket, []string{"price", "worth", "trading at", "market cap", "pump", "dump", "ath", "all time high", "bullish", "bearish", "$"}},
	{IntentIdentity, []string{"who is", "who's", "whos ", "who are", "tell me about @", "what do you know about @"}},
	{IntentCurrentEvents, []string{"news", "latest", "today", "happening", "announced", "just dropped", "breaking", "update on"}},
	{IntentExplainer, []string{"what is", "what's", "whats ", "what are", "how does", "how do", "explain", "eli5", "why does", "why is", "difference between"}},
}

var domainRules = []struct {
	domain   Domain
	keywords []string
}{
	{DomainMarket, []string{"price", "coin", "token", "crypto", "bitcoin", "btc", "eth", "solana", "market", "stock", "trading", "nft"}},
	{DomainGaming, []string{"game", "gaming", "esports", "steam", "playstation", "xbox", "nintendo", "speedrun", "fortnite", "minecraft"}},
	{DomainTechnology, []string{"ai", "llm", "model", "software", "code", "programming", "startup", "tech", "api", "open source", "gpu"}},
	{DomainCulture, []string{"meme", "movie", "music", "album", "show", "celebrity", "drama", "viral", "trend"}},
}

// Classify buckets a question into an intent and domain using ordered
// keyword rules. Anything unmatched is casual smalltalk in the general
// domain.
func Classify(question string) (Intent, Domain) {
	lower := strings.ToLower(question)

	intent := IntentCasual
	for _, rule := range intentRules {
		if containsAny(lower, rule.keywords) {
			intent = rule.intent
			break
		}
	}

	domain := DomainGeneral
	for _, rule := range domainRules {
		if containsAny(lower, rule.keywords) {
			domain = rule.domain
			break
		}
	}

	return intent, domain
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
