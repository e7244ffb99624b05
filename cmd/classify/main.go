package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/winisorts/classifier-api/internal/adapter/client"
	"github.com/winisorts/classifier-api/internal/domain/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	url := fs.String("url", envOr("CLASSIFIER_URL", "http://localhost:8080"), "classifier service base URL")
	abstract := fs.String("abstract", "", "abstract text to classify")
	file := fs.String("file", "", "read the abstract from a file, - for stdin")
	health := fs.Bool("health", false, "check service liveness instead of classifying")
	ready := fs.Bool("ready", false, "check service readiness instead of classifying")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	raw := fs.Bool("json", false, "print the raw JSON response")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.NewClassifierClient(*url, *timeout)

	if *health {
		resp, err := c.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "status=%s ts=%s\n", resp.Status, time.Unix(resp.TS, 0).UTC().Format(time.RFC3339))
		return nil
	}

	if *ready {
		if err := c.Ready(ctx); err != nil {
			return fmt.Errorf("service not ready: %w", err)
		}
		_, err := fmt.Fprintln(stdout, "ready")
		return err
	}

	text, err := readAbstract(*abstract, *file, stdin)
	if err != nil {
		return err
	}

	if *raw {
		resp, err := c.Classify(ctx, text)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(resp.Raw))
		return err
	}

	result, err := client.NewRemoteClassifier(c).Classify(ctx, text)
	if err != nil {
		return err
	}
	printClassification(stdout, result)
	return nil
}

func readAbstract(abstract, file string, stdin io.Reader) (string, error) {
	switch {
	case abstract != "" && file != "":
		return "", errors.New("use either -abstract or -file, not both")
	case abstract != "":
		return abstract, nil
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read abstract: %w", err)
		}
		return string(data), nil
	default:
		return "", errors.New("an abstract is required: pass -abstract or -file")
	}
}

func printClassification(w io.Writer, r *service.Classification) {
	fmt.Fprintf(w, "Primary category:     %s (%.3f)\n", r.PrimaryCategory.Label, r.PrimaryCategory.Confidence)
	fmt.Fprintf(w, "Research methodology: %s (%.3f)\n", r.ResearchMethodology.Label, r.ResearchMethodology.Confidence)
	if len(r.Categories) == 0 {
		fmt.Fprintln(w, "Categories:           none above threshold")
		return
	}
	parts := make([]string, len(r.Categories))
	for i, s := range r.Categories {
		parts[i] = fmt.Sprintf("%s (%.3f)", s.Label, s.Confidence)
	}
	fmt.Fprintf(w, "Categories:           %s\n", strings.Join(parts, ", "))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
