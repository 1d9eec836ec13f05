package signals

// CompositeSignalImp fans attachment and notification out to several
// underlying signals carrying the same event type, e.g. the query event
// streams of several engines observed as one.
type CompositeSignalImp[E any] struct {
	delegates []Signal[E]
}

func NewCompositeSignal[E any](delegates ...Signal[E]) *CompositeSignalImp[E] {
	return &CompositeSignalImp[E]{delegates: delegates}
}

func (s *CompositeSignalImp[E]) Attach(observer Observer[E], observerID ...any) Disposable {
	disposables := make([]Disposable, 0, len(s.delegates))
	for _, delegate := range s.delegates {
		disposables = append(disposables, delegate.Attach(observer, observerID...))
	}
	return NewCompositeDisposable(disposables...)
}

func (s *CompositeSignalImp[E]) Detach(observer Observer[E], observerID ...any) {
	for _, delegate := range s.delegates {
		delegate.Detach(observer, observerID...)
	}
}

func (s *CompositeSignalImp[E]) Notify(event E) {
	for _, delegate := range s.delegates {
		delegate.Notify(event)
	}
}
