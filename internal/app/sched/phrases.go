package sched

import "math/rand/v2"

// The two pools are disjoint: openings start an exchange, replies answer one.
var openingPhrases = []string{
	"Hi, are you around?",
	"Quick question.",
	"Hello there.",
	"Can I call you later?",
	"Hi, save my number.",
	"Sorry for the hour.",
	"Are you available?",
	"Good morning.",
}

var replyPhrases = []string{
	"Yes, go ahead.",
	"Can't right now.",
	"Sure, I'll let you know.",
	"All good here.",
	"I'm driving.",
	"Talk later.",
	"Ok.",
	"Sounds great.",
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.IntN(len(pool))]
}
