// cmd/tools/card-tool/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"hub-connectors/internal/common/validation"
	"hub-connectors/pkg/card"
	"hub-connectors/pkg/registry"
)

func main() {
	discoveryCmd := flag.NewFlagSet("discovery", flag.ExitOnError)
	hashCmd := flag.NewFlagSet("hash", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	discoveryPath := discoveryCmd.String("path", "configs/discovery.json", "Path to discovery metadata")
	baseURL := discoveryCmd.String("base", "", "Resolve hrefs against this base URL")

	hashFile := hashCmd.String("file", "", "Card or cards document (JSON)")
	hashStrict := hashCmd.Bool("strict", false, "Fail on any stored hash that differs from the computed one, including caller-supplied overrides")
	validateFile := validateCmd.String("file", "", "Card or cards document (JSON)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "discovery":
		discoveryCmd.Parse(os.Args[2:])
		err = checkDiscovery(os.Stdout, *discoveryPath, *baseURL)

	case "hash":
		hashCmd.Parse(os.Args[2:])
		if *hashFile == "" {
			fmt.Println("Error: file is required for hash.")
			hashCmd.Usage()
			os.Exit(1)
		}
		err = checkHashes(os.Stdout, *hashFile, *hashStrict)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if *validateFile == "" {
			fmt.Println("Error: file is required for validate.")
			validateCmd.Usage()
			os.Exit(1)
		}
		err = validateCards(os.Stdout, *validateFile)

	case "help":
		fallthrough
	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("%s failed: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func checkDiscovery(w io.Writer, path, baseURL string) error {
	doc, err := registry.LoadDiscovery(path)
	if err != nil {
		return err
	}
	if baseURL != "" {
		if doc, err = doc.Resolve(baseURL); err != nil {
			return err
		}
	}
	for _, name := range doc.TypeNames() {
		fmt.Fprintf(w, "%s -> %s\n", name, doc.ObjectTypes[name].Endpoint.Href)
	}
	fmt.Fprintf(w, "Discovery metadata valid. Found %d object types.\n", len(doc.ObjectTypes))
	return nil
}

// readCards accepts either a single card or a {"cards": [...]} document.
func readCards(path string) ([]*card.Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, ok := envelope["cards"]; ok {
		var cards card.Cards
		if err := json.Unmarshal(data, &cards); err != nil {
			return nil, fmt.Errorf("invalid cards document: %w", err)
		}
		return cards.Cards, nil
	}

	var c card.Card
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid card: %w", err)
	}
	return []*card.Card{&c}, nil
}

// checkHashes recomputes every card's hash and reports the ones that differ
// from what the document carries. A connector may set its own hash, so a
// difference is reported as an override and only fails in strict mode.
func checkHashes(w io.Writer, path string, strict bool) error {
	cards, err := readCards(path)
	if err != nil {
		return err
	}

	mismatched := 0
	for i, c := range cards {
		computed := c.ComputeHash().String()
		status := "ok"
		if computed != c.Hash() {
			mismatched++
			status = "override stored=" + c.Hash()
			if strict {
				status = "MISMATCH stored=" + c.Hash()
			}
		}
		fmt.Fprintf(w, "[%d] %s %s %s\n", i, c.Name(), computed, status)
	}
	if strict && mismatched > 0 {
		return fmt.Errorf("%d of %d cards carry a hash that differs from the computed one", mismatched, len(cards))
	}
	return nil
}

func validateCards(w io.Writer, path string) error {
	cards, err := readCards(path)
	if err != nil {
		return err
	}
	validator, err := validation.NewCardValidator()
	if err != nil {
		return err
	}

	invalid := 0
	for i, c := range cards {
		if ws := c.Validate(); len(ws) > 0 {
			fmt.Fprintf(w, "[%d] %s\n", i, validation.FromWarnings(ws).Summary())
			invalid++
			continue
		}
		result, err := validator.ValidateCard(c)
		if err != nil {
			return err
		}
		if !result.Valid {
			fmt.Fprintf(w, "[%d] %s\n", i, result.Summary())
			invalid++
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d cards invalid", invalid, len(cards))
	}
	fmt.Fprintf(w, "All %d cards valid.\n", len(cards))
	return nil
}

func help() {
	fmt.Print(`
Usage: card-tool <command> [flags]

Commands:
  discovery  Validate discovery metadata and list its object types
  hash       Recompute card hashes and compare them with the stored ones.
             Cards built with a caller-supplied hash are listed as overrides;
             pass -strict to treat them as failures.
  validate   Validate cards against the card contract
  help       Show this help message

Examples:
  card-tool discovery -path configs/discovery.json -base https://connectors.example.com/
  card-tool hash -file testdata/card.json
  card-tool hash -strict -file response.json
  card-tool validate -file response.json

Use 'card-tool <command> -h' for more information about a command.

`)
}
