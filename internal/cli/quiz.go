package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/quizfile"
)

// NewQuizCmd groups offline tools for quiz files.
func NewQuizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Validate and edit quiz files",
	}
	cmd.AddCommand(newQuizValidateCmd())

	var write bool
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Edit a draft quiz file and print the result",
	}
	edit.PersistentFlags().BoolVarP(&write, "write", "w", false, "write the result back to FILE instead of stdout")
	edit.AddCommand(
		newEditCmd(&write, "add-question FILE TYPE", "Append a blank choice, multiple or text question", 2,
			func(e *quizfile.Editor, args []string) error {
				_, err := e.AddQuestion(domain.QuestionType(args[0]))
				return err
			}),
		newEditCmd(&write, "remove-question FILE QUESTION_ID", "Remove a question", 2,
			func(e *quizfile.Editor, args []string) error {
				index, err := e.IndexOf(args[0])
				if err != nil {
					return err
				}
				return e.RemoveQuestion(index)
			}),
		newEditCmd(&write, "move-question FILE QUESTION_ID up|down", "Swap a question with its neighbour", 3,
			func(e *quizfile.Editor, args []string) error {
				index, err := e.IndexOf(args[0])
				if err != nil {
					return err
				}
				switch args[1] {
				case "up":
					return e.MoveQuestion(index, true)
				case "down":
					return e.MoveQuestion(index, false)
				default:
					return fmt.Errorf("direction must be up or down, got %q", args[1])
				}
			}),
		newEditCmd(&write, "add-option FILE QUESTION_ID", "Append an empty option to a choice question", 2,
			func(e *quizfile.Editor, args []string) error {
				index, err := e.IndexOf(args[0])
				if err != nil {
					return err
				}
				return e.AddOption(index)
			}),
		newEditCmd(&write, "update-option FILE QUESTION_ID INDEX TEXT", "Replace the text of an option", 4,
			func(e *quizfile.Editor, args []string) error {
				index, option, err := questionAndOption(e, args[0], args[1])
				if err != nil {
					return err
				}
				return e.UpdateOption(index, option, args[2])
			}),
		newEditCmd(&write, "remove-option FILE QUESTION_ID INDEX", "Remove an option, keeping the correct answer pointed at the same option", 3,
			func(e *quizfile.Editor, args []string) error {
				index, option, err := questionAndOption(e, args[0], args[1])
				if err != nil {
					return err
				}
				return e.RemoveOption(index, option)
			}),
	)
	cmd.AddCommand(edit)
	return cmd
}

func newQuizValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a JSON or YAML quiz and print it normalized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			quiz, err := quizfile.Parse(data, quizfile.FormatOf(args[0]))
			if err != nil {
				return err
			}
			return writeQuiz(cmd, quiz)
		},
	}
}

// newEditCmd loads FILE as a draft, applies fn to the remaining arguments and
// prints or writes back the edited quiz. Drafts are not validated.
func newEditCmd(write *bool, use, short string, nargs int, fn func(*quizfile.Editor, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			quiz, err := quizfile.ParseDraft(data, quizfile.FormatOf(path))
			if err != nil {
				return err
			}

			editor := quizfile.NewEditor(quiz)
			if err := fn(editor, args[1:]); err != nil {
				return err
			}

			if !*write {
				return writeQuiz(cmd, editor.Quiz)
			}
			out, err := quizfile.Export(editor.Quiz)
			if err != nil {
				return err
			}
			// JSON is valid YAML, so a .yaml file stays readable.
			return os.WriteFile(path, out, 0o644)
		},
	}
}

func questionAndOption(e *quizfile.Editor, questionID, option string) (int, int, error) {
	index, err := e.IndexOf(questionID)
	if err != nil {
		return 0, 0, err
	}
	n, err := strconv.Atoi(option)
	if err != nil {
		return 0, 0, fmt.Errorf("option index %q: %w", option, err)
	}
	return index, n, nil
}

func writeQuiz(cmd *cobra.Command, quiz domain.Quiz) error {
	out, err := quizfile.Export(quiz)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
