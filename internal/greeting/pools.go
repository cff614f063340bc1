package greeting

// General is the category used when no keyword matches.
const General = "general"

type category struct {
	name     string
	keywords []string
}

// builtinCategories are checked in order; the first match wins.
var builtinCategories = []category{
	{name: "bgp", keywords: []string{"bgp", "border gateway protocol", "routing protocol", "routing protocols", "autonomous system", "as number"}},
	{name: "networking", keywords: []string{"network", "networks", "networking", "protocol", "protocols", "tcp", "udp", "ip", "subnet", "subnets", "routing", "switching", "dns"}},
	{name: "programming", keywords: []string{"code", "coding", "program", "programming", "function", "functions", "variable", "variables", "algorithm", "algorithms", "python", "javascript", "golang", "recursion"}},
}

var builtinGreetings = map[string][]string{
	"bgp": {
		"BGP is fascinating! Let me break down this routing protocol for you.",
		"Great question about BGP, it's the backbone of internet routing!",
		"Border Gateway Protocol is crucial for understanding how the internet works.",
		"BGP can be complex, but I'll explain it step by step.",
		"Excellent choice, BGP is fundamental to network engineering!",
		"Let's trace how BGP routes find their way across the internet.",
		"Routing between autonomous systems is a great thing to master.",
	},
	"networking": {
		"Networking concepts are essential in today's world, let's dive in!",
		"I love discussing networking, it's the foundation of modern communication!",
		"Network protocols can be tricky, but they're incredibly powerful once you understand them.",
		"Great networking question, these concepts are everywhere in tech!",
		"Perfect timing to learn about networking, it's such a valuable skill!",
		"Let's follow the packets and see how this works.",
		"Networks are easier once you can picture the layers, so let's build that picture.",
	},
	"programming": {
		"Coding concepts coming right up!",
		"Programming questions are my favorite, let's solve this together!",
		"Great choice, this programming concept is really useful!",
		"I love helping with code, let's break this down logically!",
		"Perfect question for building your programming skills!",
		"Let's write some mental code and walk through it.",
		"This one rewards a step-by-step approach, so let's take it slowly.",
	},
	General: {
		"Interesting question! Let me help you understand this.",
		"Great topic to explore, I'm excited to explain this!",
		"This is a valuable concept to learn, let's dive in!",
		"Excellent question, understanding this will be really helpful!",
		"I'm glad you asked about this, it's an important topic!",
		"Let's unpack this together.",
		"Good one! Here's a clear way to think about it.",
	},
}

var builtinTransitions = map[string][]string{
	"bgp": {
		"Building on BGP concepts,",
		"To expand on BGP routing,",
		"Continuing with BGP protocol,",
		"Following up on routing protocols,",
		"Adding to what we covered about BGP,",
		"Taking BGP one step further,",
		"With the BGP basics in place,",
	},
	"networking": {
		"Expanding on networking fundamentals,",
		"Building on network concepts,",
		"To dive deeper into networking,",
		"Continuing our networking discussion,",
		"Following up on protocol concepts,",
		"Going one layer deeper,",
		"Connecting this to what we saw about networks,",
	},
	"programming": {
		"Building on that code concept,",
		"To expand your programming knowledge,",
		"Continuing with coding fundamentals,",
		"Adding to your development skills,",
		"Building on that programming logic,",
		"Taking that code a step further,",
		"With that pattern in mind,",
	},
	General: {
		"Building on that concept,",
		"To expand on this topic,",
		"Continuing our discussion,",
		"Following up on your question,",
		"Adding more details,",
		"Picking up where we left off,",
		"Taking this a bit further,",
	},
}
