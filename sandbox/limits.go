package sandbox

type Limits struct {
	// MaxExpressionLength bounds a single expression or statement, in runes.
	MaxExpressionLength int
	MaxDepth            int
	MaxSteps            int
	MaxStatements       int
	// MaxStringLength also bounds the length of lists built by + and *.
	MaxStringLength int
}

func DefaultLimits() Limits {
	return Limits{
		MaxExpressionLength: 1000,
		MaxDepth:            100,
		MaxSteps:            10000,
		MaxStatements:       50,
		MaxStringLength:     10000,
	}
}

// orDefault fills unset fields so a partially configured Limits stays usable.
func (l Limits) orDefault() Limits {
	d := DefaultLimits()
	if l.MaxExpressionLength <= 0 {
		l.MaxExpressionLength = d.MaxExpressionLength
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxSteps <= 0 {
		l.MaxSteps = d.MaxSteps
	}
	if l.MaxStatements <= 0 {
		l.MaxStatements = d.MaxStatements
	}
	if l.MaxStringLength <= 0 {
		l.MaxStringLength = d.MaxStringLength
	}
	return l
}
