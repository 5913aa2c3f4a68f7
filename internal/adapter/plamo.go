package adapter

const plamoOp = "<|plamo:op|>"

// plamoSpec targets PLaMo translation models, which take an op-tag prompt
// instead of a chat template and close their output with the op tag.
func plamoSpec() Spec {
	return Spec{
		Template: layout(plamoOp + "dataset\n" +
			"translation\n" +
			plamoOp + "input lang={source}\n" +
			"{text}\n" +
			plamoOp + "output lang={target}\n"),
		Stops:         []string{plamoOp},
		ControlTokens: []string{"<|plamo:eos|>"},
	}
}
