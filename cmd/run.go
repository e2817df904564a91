package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/engine"
	"github.com/skillprobe/interviewer/internal/interview"
	"github.com/skillprobe/interviewer/internal/logger"
)

const (
	minQuestions = 1
	maxQuestions = 20
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full interactive interview",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("topics", "t", "Python", "comma separated list of topics")
	runCmd.Flags().String("difficulty", interview.DifficultyMixed, "question difficulty: easy|medium|hard|mixed")
	runCmd.Flags().IntP("questions", "n", 4, "number of main questions (1-20)")
	runCmd.Flags().String("type", interview.TypeMixed, "question type: coding|theory|design|debugging|mixed")
	runCmd.Flags().String("log", "", "write the final session state as JSON to this path")
	runCmd.Flags().Bool("multiline", false, "answers are multi-line and end with a blank line")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(config, "", "  ")
	zl.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	gen, err := buildGenerator(config, zl)
	if err != nil {
		zl.Fatal(
			"building the ollama client",
			zap.Error(err),
			zap.String("hint", "set OLLAMA_HOST or the 'ollama.host' key in the configuration file"),
		)
	}

	topics := splitTopics(cmd.Flag("topics").Value.String())
	difficulty := cmd.Flag("difficulty").Value.String()
	questionType := cmd.Flag("type").Value.String()
	multiline, _ := cmd.Flags().GetBool("multiline")

	questions, _ := cmd.Flags().GetInt("questions")
	if questions < minQuestions {
		questions = minQuestions
	}
	if questions > maxQuestions {
		questions = maxQuestions
	}

	zl.Info("starting the interview",
		zap.Strings("topics", topics),
		zap.String("difficulty", difficulty),
		zap.String("type", questionType),
		zap.Int("questions", questions),
		zap.String("model", gen.Model()),
	)

	var reader engine.AnswerReader = &promptAnswerReader{}
	if multiline {
		reader = &multilineAnswerReader{in: os.Stdin}
	}

	e := engine.New(engine.Config{
		Generator:     gen,
		Seeds:         loadSeeds(zl),
		Reader:        reader,
		Out:           os.Stdout,
		Logger:        zl,
		FollowupCap:   followupCap(),
		MaxSteps:      maxSteps(),
		EvalMaxTokens: evalMaxTokens(),
	})

	session := interview.NewSession(topics, difficulty, questions, questionType, multiline)

	final, err := e.Run(ctx, session)
	if err != nil {
		zl.Fatal("interview aborted", zap.Error(err))
	}

	if path := cmd.Flag("log").Value.String(); path != "" {
		if err := final.Dump(path); err != nil {
			zl.Error("writing the session log", zap.Error(err), zap.String("path", path))
		} else {
			zl.Info("session log written", zap.String("path", path))
		}
	}
}

func splitTopics(raw string) []string {
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// promptAnswerReader captures a single-line answer with a promptui prompt.
type promptAnswerReader struct{}

func (promptAnswerReader) ReadAnswer(context.Context) (string, error) {
	prompt := promptui.Prompt{
		Label:     "Your answer",
		AllowEdit: true,
	}

	answer, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", fmt.Errorf("answer input closed: %w", err)
		}
		return "", err
	}

	return answer, nil
}

// multilineAnswerReader collects lines until the first blank one.
type multilineAnswerReader struct {
	in      *os.File
	scanner *bufio.Scanner
}

func (r *multilineAnswerReader) ReadAnswer(context.Context) (string, error) {
	if r.scanner == nil {
		r.scanner = bufio.NewScanner(r.in)
	}

	fmt.Println("Your answer (finish with a blank line):")

	var lines []string
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}

	return strings.Join(lines, "\n"), nil
}
