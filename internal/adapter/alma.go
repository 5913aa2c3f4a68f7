package adapter

// almaSpec targets ALMA, which halts on the first blank line, so input is
// flattened to one line.
func almaSpec() Spec {
	return Spec{
		Template:  layout("Translate this from {source} to {target}:\n{source}: {text}\n{target}:"),
		Stops:     []string{"</s>"},
		Normalize: FlattenLines,
	}
}
