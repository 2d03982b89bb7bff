/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package adp

import "errors"

var (
	errBreak = errors.New("adp: break")
	errAbort = errors.New("adp: abort")

	// ErrOverflow is returned by Include once MaxDepth nested includes have
	// been exceeded, mirroring ADP_OVERFLOW.
	ErrOverflow = errors.New("adp: nesting depth exceeded")
)

// ScriptEvaluator is the sole extension point through which Evaluator
// delegates actual script execution, keeping this package agnostic to
// which embedded language is wired in.
type ScriptEvaluator interface {
	// Eval runs source (a Script or Expr block body) in the context of
	// frame and returns its result (used only for Expr/Tag blocks),
	// any raised Exception, and an execution error.
	Eval(frame *Frame, source string) (result string, exception Exception, err error)
}

// Evaluator drives a compiled Page against a ScriptEvaluator, honoring the
// Return/Break/Abort/Overflow exception model NsAdpEval/NsAdpInclude
// implement around a per-connection include stack.
type Evaluator struct {
	Script ScriptEvaluator
	Tags   *Registry

	// MaxDepth bounds nested Include calls. The original tracks
	// itPtr->adp.depth but the retrieved sources name no fixed ceiling;
	// 50 is a deliberately chosen default, not a ported constant.
	MaxDepth int
}

// NewEvaluator returns an Evaluator with MaxDepth defaulted to 50 when n
// is non-positive.
func NewEvaluator(script ScriptEvaluator, tags *Registry, maxDepth int) *Evaluator {
	if maxDepth <= 0 {
		maxDepth = 50
	}
	return &Evaluator{Script: script, Tags: tags, MaxDepth: maxDepth}
}

// Eval runs page as the top-level request frame. A Return or Break raised
// at top level ends the response normally; Abort and Overflow are
// reported as errors to the caller.
func (e *Evaluator) Eval(frame *Frame, page *Page) error {
	err := e.run(frame, page)
	switch {
	case errors.Is(err, errBreak):
		return nil
	case errors.Is(err, errAbort):
		return err
	default:
		return err
	}
}

// Include evaluates page as a nested frame rooted at file/argv, appending
// its output into parent's buffer. Return is absorbed here and reported
// as success to parent; Break, Abort, and Overflow propagate to parent
// unchanged, matching NsAdpInclude's switch on the child's exception.
func (e *Evaluator) Include(parent *Frame, page *Page, file string, argv []string) error {
	if parent.Depth+1 > e.MaxDepth {
		parent.Exception = Overflow
		return ErrOverflow
	}

	child := NewFrame(file, parent.Cwd, argv)
	child.Depth = parent.Depth + 1
	child.Mimetype = parent.Mimetype
	child.Charset = parent.Charset
	child.Stream = parent.Stream

	err := e.run(child, page)
	parent.Output.Write(child.Output.Bytes())

	switch {
	case errors.Is(err, errAbort):
		parent.Exception = Abort
		return err
	case errors.Is(err, errBreak):
		parent.Exception = Break
		return err
	case errors.Is(err, ErrOverflow):
		parent.Exception = Overflow
		return err
	case err != nil:
		return err
	}
	return nil
}

// run executes page's block stream against frame until a block raises a
// non-OK Exception or the stream is exhausted.
func (e *Evaluator) run(frame *Frame, page *Page) error {
	for _, b := range page.Blocks {
		switch b.Kind {
		case Text:
			frame.Output.WriteString(b.Text)

		case Script:
			_, exc, err := e.Script.Eval(frame, b.Text)
			if err != nil {
				return err
			}
			if stop, serr := e.apply(frame, exc); stop {
				return serr
			}

		case Expr:
			result, exc, err := e.Script.Eval(frame, b.Text)
			if err != nil {
				return err
			}
			frame.Output.WriteString(result)
			if stop, serr := e.apply(frame, exc); stop {
				return serr
			}

		case Tag:
			spec, ok := e.Tags.lookup(b.TagName)
			if !ok {
				continue
			}
			result, exc, err := spec.Handler(frame, b.Attrs, b.Body)
			if err != nil {
				return err
			}
			frame.Output.WriteString(result)
			if stop, serr := e.apply(frame, exc); stop {
				return serr
			}

		case EnableStream:
			frame.Stream = true
		}
	}
	return nil
}

// apply translates a block-reported Exception into frame.Exception and,
// for Return/Break/Abort/Overflow, a sentinel error signalling run to
// stop iterating this frame's remaining blocks.
func (e *Evaluator) apply(frame *Frame, exc Exception) (stop bool, err error) {
	switch exc {
	case OK:
		return false, nil
	case Return:
		frame.Exception = Return
		return true, nil
	case Break:
		frame.Exception = Break
		return true, errBreak
	case Abort:
		frame.Exception = Abort
		return true, errAbort
	case Overflow:
		frame.Exception = Overflow
		return true, ErrOverflow
	default:
		return false, nil
	}
}
