package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/TobiSchelling/ContentMachine/internal/imagegen"
	"github.com/TobiSchelling/ContentMachine/internal/pipeline"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

// errAborted is returned when input ends before the wizard finishes.
var errAborted = errors.New("aborted")

// wizard walks one topic from selection to an approved image on line prompts.
type wizard struct {
	p   *pipeline.Pipeline
	in  *bufio.Reader
	out io.Writer
}

func newWizard(p *pipeline.Pipeline, in io.Reader, out io.Writer) *wizard {
	return &wizard{p: p, in: bufio.NewReader(in), out: out}
}

func (w *wizard) run(ctx context.Context) error {
	list, err := w.p.LoadTopics(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(w.out, "No topics stored yet.")
		list, err = w.search(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(w.out, "The search produced no topics.")
			return nil
		}
	}

	printTopics(w.out, list)
	topic, err := w.pick(list)
	if err != nil {
		return err
	}

	extra, err := w.ask("Additional context for the post (optional): ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "\nGenerating post for: %s\n\n", topic.Title)
	post, err := w.p.GeneratePost(ctx, topic.Title, extra)
	if err != nil {
		return explain(err)
	}
	renderPost(w.out, post.Body)

	ok, err := w.confirm("\nGenerate an image for this post? [y/N]: ")
	if err != nil || !ok {
		return err
	}
	return w.image(ctx, topic)
}

func (w *wizard) search(ctx context.Context) ([]topics.Topic, error) {
	d := w.p.Defaults()
	niche, err := w.ask(fmt.Sprintf("Niche [%s]: ", d.Niche))
	if err != nil {
		return nil, err
	}
	result, err := w.p.SearchTopics(ctx, niche, 0, "")
	printSteps(w.out, result)
	if err != nil {
		return nil, explain(err)
	}
	return result.Topics, nil
}

func (w *wizard) pick(list []topics.Topic) (*topics.Topic, error) {
	for {
		answer, err := w.ask(fmt.Sprintf("\nPick a topic [1-%d]: ", len(list)))
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil {
			for i := range list {
				if list[i].Index == n {
					return &list[i], nil
				}
			}
		}
		fmt.Fprintln(w.out, "Not a listed topic number.")
	}
}

func (w *wizard) image(ctx context.Context, topic *topics.Topic) error {
	req := imagegen.Request{Topic: topic.Title}

	if names := templateNames(w.p.ImageTemplates()); len(names) > 0 {
		answer, err := w.ask(fmt.Sprintf("Layout template (%s, empty for none): ", strings.Join(names, ", ")))
		if err != nil {
			return err
		}
		req.Template = answer
	}
	headline, err := w.ask("Headline on the image (optional): ")
	if err != nil {
		return err
	}
	req.Headline = headline

	for {
		res, err := w.p.GenerateImage(ctx, req)
		if err != nil {
			return explain(err)
		}
		fmt.Fprintf(w.out, "Image saved: %s\n", res.Path)
		if res.ID == 0 {
			fmt.Fprintln(w.out, "The image was not recorded in the history database, so it cannot be approved.")
			return nil
		}

		answer, err := w.ask("[a]pprove, [r]egenerate or [s]kip: ")
		if err != nil {
			return err
		}
		switch strings.ToLower(answer) {
		case "a", "approve":
			if err := w.p.ApproveImage(res.ID); err != nil {
				return err
			}
			fmt.Fprintln(w.out, "Image approved.")
			return nil
		case "r", "regenerate":
			continue
		default:
			fmt.Fprintln(w.out, "Image left pending approval.")
			return nil
		}
	}
}

func (w *wizard) ask(prompt string) (string, error) {
	fmt.Fprint(w.out, prompt)
	line, err := w.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (w *wizard) confirm(prompt string) (bool, error) {
	answer, err := w.ask(prompt)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

func templateNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
