package rag

import (
	"fmt"
	"strings"
)

const (
	contextHeader = "Context from research papers and clinical data:"
	answerCue     = "Answer in clear, helpful language:"
)

// instructions returns the fixed preamble sent ahead of every question.
func instructions(wordLimit int) string {
	parts := []string{
		"You are a helpful medical expert assistant. Outside of medical expertise you do not provide any information, only answer medical asks. Provide accurate and concise information with supporting/reference links. ",
		"Using the attached database of medicines of India and Indian government sources, provide accurate information on Indians' health, their food and exercise habits, act as their personal assistant (remember you are not a doctor), and point to results from psychologists, physiotherapists, psychiatrists, general physicians, cardiologists, dermatologists, neurologists, gynecologists, urologists, ENT specialists, pediatricians, oncologists, endocrinologists, nephrologists, gastroenterologists, pulmonologists, rheumatologists and other medical fields. ",
		fmt.Sprintf("Word limit: %d. Output format: text, list, markup, links, medical references and output only.", wordLimit),
		"Do not use the following sequences while providing a response: '**', '--'. Instead use arrows and emojis like '➡️', '💊', '🔗' to make it engaging and visually appealing.\n",
	}
	return strings.Join(parts, " ")
}

// Compose builds the single prompt sent to the generation endpoint. docs keep
// the order the store returned them in.
func Compose(prompt string, docs []string, wordLimit int) string {
	var sb strings.Builder
	sb.WriteString(instructions(wordLimit))
	sb.WriteString("\n")
	sb.WriteString(contextHeader)
	sb.WriteString("\n")
	sb.WriteString(strings.Join(docs, "\n\n"))
	sb.WriteString("\n\nUser question: ")
	sb.WriteString(prompt)
	sb.WriteString("\n")
	sb.WriteString(answerCue)
	return sb.String()
}
