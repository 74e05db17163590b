package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"crossmarket/internal/query"
	"crossmarket/internal/service"

	tele "gopkg.in/telebot.v3"
)

// botMaxRows keeps replies inside Telegram's message size limit.
const botMaxRows = 15

func StartTelegramBot(queryService *service.QueryService) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/queries", func(c tele.Context) error {
		category := ""
		if args := c.Args(); len(args) > 0 {
			category = args[0]
		}
		return c.Send(formatCatalog(queryService.Catalog(category)))
	})

	b.Handle("/run", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /run <query_name>\nSee /queries for the catalog.")
		}
		name := args[0]
		if def, ok := query.Lookup(name); ok && len(def.Params) > 0 {
			return c.Send(fmt.Sprintf("%s needs parameters (%s); use the HTTP API for parameterized queries.",
				name, strings.Join(def.Params, ", ")))
		}
		result, err := queryService.Run(context.Background(), name, nil)
		if err != nil {
			return c.Send(fmt.Sprintf("Error running %s: %v", name, err))
		}
		return c.Send(formatResult(result))
	})

	b.Handle("/oil", func(c tele.Context) error {
		result, err := queryService.Run(context.Background(), "oil_yearly_average", nil)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching oil prices: %v", err))
		}
		return c.Send(formatResult(result))
	})

	b.Handle("/btc", func(c tele.Context) error {
		result, err := queryService.Run(context.Background(), "btc_highest_price_365d", nil)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching bitcoin prices: %v", err))
		}
		return c.Send(formatResult(result))
	})

	b.Handle("/snapshot", func(c tele.Context) error {
		start, end := dateWindow(7)
		result, err := queryService.Run(context.Background(), "daily_snapshot",
			map[string]string{"start_date": start, "end_date": end})
		if err != nil {
			return c.Send(fmt.Sprintf("Error building snapshot: %v", err))
		}
		return c.Send(formatResult(result))
	})

	b.Handle("/coin", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /coin <coin_id>\nExample: /coin bitcoin")
		}
		start, end := dateWindow(90)
		result, err := queryService.Run(context.Background(), "coin_price_series",
			map[string]string{"coin_id": args[0], "start_date": start, "end_date": end})
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching %s: %v", args[0], err))
		}
		return c.Send(formatResult(result))
	})

	log.Println("Telegram bot started")
	go b.Start()
}

// formatCatalog renders the catalog as one name per line grouped by
// category.
func formatCatalog(definitions []query.Definition) string {
	if len(definitions) == 0 {
		return "No queries in that category.\nCategories: " + strings.Join(query.Categories(), ", ")
	}

	var b strings.Builder
	current := ""
	for _, d := range definitions {
		if d.Category != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = d.Category
			fmt.Fprintf(&b, "%s:\n", current)
		}
		if len(d.Params) > 0 {
			fmt.Fprintf(&b, "  %s (%s)\n", d.Name, strings.Join(d.Params, ", "))
		} else {
			fmt.Fprintf(&b, "  %s\n", d.Name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatResult renders a query result as plain text rows, truncated to
// fit one message.
func formatResult(result *query.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", result.Name, strings.Join(result.Columns, " | "))

	rows := result.Rows
	truncated := result.Truncated
	if len(rows) > botMaxRows {
		rows = rows[:botMaxRows]
		truncated = true
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	if len(result.Rows) == 0 {
		b.WriteString("(no rows)\n")
	}
	if truncated {
		fmt.Fprintf(&b, "... (%d rows total)\n", len(result.Rows))
	}
	return strings.TrimRight(b.String(), "\n")
}

// dateWindow returns the ISO dates for a window ending today.
func dateWindow(days int) (start, end string) {
	now := time.Now().UTC()
	return now.AddDate(0, 0, -days).Format("2006-01-02"), now.Format("2006-01-02")
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%.2f", t)
	case float32:
		return fmt.Sprintf("%.2f", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
