package trainer

import "github.com/vbauerster/mpb/v8"
import "github.com/vbauerster/mpb/v8/decor"

// bar is a single-line progress display; the zero value shows nothing
type bar struct {
	p *mpb.Progress
	b *mpb.Bar
}

func (l *Learner) bar(name string, total int) bar {
	if l.progress == nil || !l.Coordinator() {
		return bar{}
	}
	p := mpb.New(mpb.WithOutput(l.progress), mpb.WithWidth(64))
	b := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name+" "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)
	return bar{p: p, b: b}
}

func (b bar) increment() {
	if b.b != nil {
		b.b.Increment()
	}
}

func (b bar) done(err error) {
	if b.p == nil {
		return
	}
	if err != nil {
		b.b.Abort(false)
	} else {
		b.b.SetTotal(-1, true)
	}
	b.p.Wait()
}
