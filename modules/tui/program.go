package tui

import (
	"io"

	agg "tx-composer/modules/aggregate"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/chebyrash/promise"
)

// Program runs the editor as a plugin. Its start promise settles when the
// user quits, which ends the aggregate run.
type Program struct {
	model   Model
	input   io.Reader
	output  io.Writer
	program *tea.Program
}

var _ agg.Plugin = &Program{}

func NewProgram(model Model, input io.Reader, output io.Writer) *Program {
	return &Program{model: model, input: input, output: output}
}

func (p *Program) Init() error {
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if p.input != nil {
		opts = append(opts, tea.WithInput(p.input))
	}
	if p.output != nil {
		opts = append(opts, tea.WithOutput(p.output))
	}
	p.program = tea.NewProgram(p.model, opts...)
	return nil
}

func (p *Program) Start() *promise.Promise[any] {
	return promise.New(func(resolve func(any), reject func(error)) {
		if _, err := p.program.Run(); err != nil {
			reject(err)
			return
		}
		resolve(nil)
	})
}

func (p *Program) Stop() error {
	p.program.Quit()
	return nil
}
