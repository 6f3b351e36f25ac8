package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/match"
)

type output struct {
	json bool
}

// print writes v as JSON in --json mode, otherwise calls text.
func (o *output) print(v interface{}, text func()) error {
	if o.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

func ingestCmd(g *globalFlags) *cobra.Command {
	var evaluation string
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Extract and store resumes (PDF, TXT, MD)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(func(s *session) error {
				ids := make([]string, 0, len(args))
				for _, path := range args {
					id, err := s.kit.Ingest(s.ctx, path, evaluation)
					if err != nil {
						return err
					}
					ids = append(ids, id)
				}
				return s.out.print(map[string]interface{}{"ids": ids}, func() {
					for _, id := range ids {
						fmt.Println(id)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&evaluation, "evaluation", "", "Evaluation text appended to each resume")
	return cmd
}

func matchCmd(g *globalFlags) *cobra.Command {
	var (
		job  match.Job
		topK int
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Find the resumes nearest to a job posting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(func(s *session) error {
				results, err := s.kit.Matches(s.ctx, job, topK)
				if err != nil {
					return err
				}
				return s.out.print(results, func() {
					for i, r := range results {
						fmt.Printf("%2d. %-40s %.4f\n", i+1, r.ID, r.Distance)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&job.Title, "title", "", "Job title")
	cmd.Flags().StringVar(&job.Description, "description", "", "Job description")
	cmd.Flags().StringSliceVar(&job.Skills, "skills", nil, "Required skills (comma separated)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of results (default match.top_k)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func uploadCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Store a resume under a new id and generate interview questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "opening resume")
			}
			defer f.Close()

			return g.withSession(func(s *session) error {
				id, questions, err := s.kit.Upload(s.ctx, f, args[0])
				if err != nil {
					if id != "" {
						fmt.Fprintf(os.Stderr, "stored as %s\n", id)
					}
					return err
				}
				return s.out.print(map[string]interface{}{"id": id, "questions": questions}, func() {
					fmt.Println(id)
					printQuestions(questions)
				})
			})
		},
	}
}

func questionsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "questions <id>",
		Short: "Generate interview questions for a stored resume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(func(s *session) error {
				questions, err := s.kit.Questions(s.ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.print(questions, func() { printQuestions(questions) })
			})
		},
	}
}

func answerCmd(g *globalFlags) *cobra.Command {
	var (
		answers     []string
		answersFile string
	)
	cmd := &cobra.Command{
		Use:   "answer <id>",
		Short: "Evaluate interview answers and attach the evaluation to the resume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if answersFile != "" {
				fromFile, err := readLines(answersFile)
				if err != nil {
					return err
				}
				answers = append(answers, fromFile...)
			}
			return g.withSession(func(s *session) error {
				ev, err := s.kit.SubmitAnswers(s.ctx, args[0], answers)
				if err != nil {
					return err
				}
				return s.out.print(ev, func() {
					fmt.Printf("Evaluation:\n%s\n\nAdvice:\n%s\n", ev.Evaluation, ev.Advice)
				})
			})
		},
	}
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "An answer (repeatable)")
	cmd.Flags().StringVar(&answersFile, "answers-file", "", "File with one answer per line")
	return cmd
}

func searchCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Keyword search over stored resumes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(func(s *session) error {
				hits, err := s.kit.SearchKeywords(s.ctx, strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				return s.out.print(hits, func() {
					for i, h := range hits {
						fmt.Printf("%2d. %-40s %.3f\n", i+1, h.ID, h.Score)
					}
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of hits")
	return cmd
}

func reindexCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the keyword index from the vector index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(func(s *session) error {
				if err := s.kit.RebuildKeywords(s.ctx); err != nil {
					return err
				}
				n, err := s.kit.Count(s.ctx)
				if err != nil {
					return err
				}
				return s.out.print(map[string]int{"documents": n}, func() {
					fmt.Printf("reindexed %d documents\n", n)
				})
			})
		},
	}
}

func listCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored resumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(func(s *session) error {
				docs, err := s.kit.Documents(s.ctx)
				if err != nil {
					return err
				}
				type row struct {
					ID       string            `json:"id"`
					Model    string            `json:"model"`
					Chars    int               `json:"chars"`
					Metadata map[string]string `json:"metadata"`
				}
				rows := make([]row, len(docs))
				for i, d := range docs {
					rows[i] = row{ID: d.ID, Model: d.Model, Chars: len(d.Text), Metadata: d.Metadata}
				}
				return s.out.print(rows, func() {
					for _, r := range rows {
						fmt.Printf("%-40s %-24s %6d chars  evaluated=%s\n", r.ID, r.Model, r.Chars, r.Metadata["has_evaluation"])
					}
				})
			})
		},
	}
}

func printQuestions(questions []string) {
	for i, q := range questions {
		fmt.Printf("%2d. %s\n", i+1, q)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "opening answers file")
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "reading answers file")
	}
	return lines, nil
}
