package app

// Fixed campaign and command copy. Kept in one place so wording changes
// never touch the delivery code.

const promptMessage = `🥗 **Food Request Time!** 🥗

It's time to submit your food requests for this week's order.

**How to respond:**
Just reply with items separated by commas, like:
` + "`grapes, kale, lettuce, cabbage`" + `

Or just single items:
` + "`grapes`" + `

Your requests will be automatically added to the Kitchen Manager's tracker!`

const summaryMessage = `📦 **This week's order is in!**

The Kitchen Manager has reviewed the requests. Check your DMs for your
personal approved/rejected summary, and see the tracker for the full list.`

const requestHelpMessage = `🥗 **Submit Food Requests** 🥗

Reply with items separated by commas:
` + "`grapes, kale, lettuce, cabbage`"

const testReply = "✅ Bot is working! Try sending: `grapes, kale`"
