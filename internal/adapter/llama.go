package adapter

// llamaSpec targets Llama 3 instruct models. The system turn tells the model
// not to introduce its answer, which those models otherwise do.
func llamaSpec() Spec {
	return Spec{
		Template: layout("<|start_header_id|>system<|end_header_id|>\n\n" +
			"You are a professional translator. Translate the user's text from {source} to {target}. " +
			"Reply with the translation only. Never add a preamble, explanation, notes, or quotation marks." +
			"<|eot_id|><|start_header_id|>user<|end_header_id|>\n\n" +
			"{text}<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n\n"),
		Stops:         []string{"<|eot_id|>"},
		ControlTokens: []string{"<|end_of_text|>"},
		Preambles:     chatPreambles,
	}
}
