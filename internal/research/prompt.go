package research

// memoryPrompt takes the task and the joined past findings.
const memoryPrompt = `Use past research to answer.

Question:
%s

Past:
%s
`

// webPrompt takes the task and the formatted web results.
const webPrompt = `Answer using this web data.

Question:
%s

Web Data:
%s
`
