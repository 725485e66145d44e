package planner

// planningPrompt is filled with the user's question.
const planningPrompt = `You are an expert research planner.

Your job is to break a complex question into smaller, independent research questions.

RULES:
- Generate at least 3 sub-questions.
- Each must focus on ONE research angle.
- Do NOT repeat the original question.
- Do NOT rephrase it.
- Make them specific and researchable.
- Cover different perspectives (technology, jobs, economy, future, risks).

Return ONLY valid JSON.

Example format:
{
  "tasks": [
    "What are the current capabilities of AI in software development?",
    "How is AI impacting the demand for software engineers?",
    "What limitations prevent AI from fully replacing engineers?",
    "How might the role of engineers evolve with AI tools?",
    "What do experts predict about AI and programming jobs?"
  ]
}

Question:
%s
`
