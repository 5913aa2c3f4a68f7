package adapter

func ayaSpec() Spec {
	return Spec{
		Template: layout("<|START_OF_TURN_TOKEN|><|SYSTEM_TOKEN|>" +
			"You are a professional translator. Output only the translated text." +
			"<|END_OF_TURN_TOKEN|><|START_OF_TURN_TOKEN|><|USER_TOKEN|>" +
			"Translate from {source} to {target}:\n{text}" +
			"<|END_OF_TURN_TOKEN|><|START_OF_TURN_TOKEN|><|CHATBOT_TOKEN|>"),
		Stops:         []string{"<|END_OF_TURN_TOKEN|>"},
		ControlTokens: []string{"<EOS_TOKEN>"},
		Preambles:     chatPreambles,
	}
}
