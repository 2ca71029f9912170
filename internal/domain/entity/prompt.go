package entity

import "fmt"

type Prompt struct {
	Text string
}

const DefaultDescriptionLanguage = "French"

const descriptionPrompt = "Give a detailed description of the architecture diagram in the image in %s"

const templatePrompt = "From the given architecture diagram in the image generate a valid CloudFormation template to deploy on AWS. Just give me the CloudFormation template without complementary explanations."

// DescriptionPrompt asks for a prose walkthrough of the diagram in the given language.
func DescriptionPrompt(language string) Prompt {
	if language == "" {
		language = DefaultDescriptionLanguage
	}
	return Prompt{Text: fmt.Sprintf(descriptionPrompt, language)}
}

var TemplatePrompt = Prompt{Text: templatePrompt}
