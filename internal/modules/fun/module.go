package fun

import (
	"context"
	"fmt"
	"math/rand"

	"yuno-bot/internal/command"
	"yuno-bot/internal/platform"
)

// Answers holds 10 affirmative, 5 neutral and 5 negative replies.
var Answers = [...]string{
	"It is certain~ 💕",
	"It is decidedly so~ 💗",
	"Without a doubt~ 💖",
	"Yes, definitely~ 💕",
	"You may rely on it~ 💗",
	"As I see it, yes~ ✨",
	"Most likely~ 💕",
	"Outlook good~ 💖",
	"Yes~ 💗",
	"Signs point to yes~ ✨",

	"Reply hazy, try again~ 🤔",
	"Ask again later~ 💭",
	"Better not tell you now~ 😏",
	"Cannot predict now~ 🔮",
	"Concentrate and ask again~ 💫",

	"Don't count on it~ 💔",
	"My reply is no~ 😤",
	"My sources say no~ 💢",
	"Outlook not so good~ 😞",
	"Very doubtful~ 💔",
}

type Module struct {
	intn func(n int) int
}

func New() *Module {
	return &Module{intn: rand.Intn}
}

func (m *Module) WithRand(intn func(n int) int) *Module {
	m.intn = intn
	return m
}

func (m *Module) Commands() []command.Definition {
	return []command.Definition{
		{
			Name:        "8ball",
			Description: "Ask the magic 8-ball",
			Usage:       "8ball <question>",
			Category:    "Fun",
			Params: []command.Param{
				{Name: "question", Description: "Your question", Kind: command.KindString, Required: true, Rest: true},
			},
			Handler: m.handle8Ball,
		},
	}
}

func (m *Module) handle8Ball(ctx context.Context, inv *command.Invocation) platform.Response {
	question, _ := inv.Args.String("question")
	answer := Answers[m.intn(len(Answers))]
	return inv.Respond(fmt.Sprintf("🎱 **Magic 8-Ball**\n\n**Question:** %s\n\n**Answer:** %s\n\n*shakes the 8-ball mysteriously*", question, answer))
}
