package adapter

func gemmaSpec() Spec {
	return Spec{
		Template: layout("<start_of_turn>user\n" +
			"Translate from {source} to {target}. Output only the translation.\n\n" +
			"{text}<end_of_turn>\n" +
			"<start_of_turn>model\n"),
		Stops:         []string{"<end_of_turn>"},
		ControlTokens: []string{"<eos>"},
		Preambles:     chatPreambles,
	}
}
