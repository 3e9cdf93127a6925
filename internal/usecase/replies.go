package usecase

// Fixed reply texts. Sets of alternatives are picked from at random so the
// agent does not sound like a form.

var (
	cancelReplies = []string{
		"No problem! Transaction cancelled. What else can I help you with?",
		"Got it! I've cancelled that transfer. How can I help you now?",
		"Sure thing! Starting fresh. What would you like to do?",
		"Okay! Transaction cleared. What can I do for you?",
	}

	shortGreetingAcks = []string{"Hey there! 👋", "Hi! 😊", "Hello! 👋", "Hey! 😊"}

	errorReplies = []string{
		"Oops! Something went wrong there. Please try again in a moment. 🙏",
		"Sorry, I ran into a problem handling that. Could you try again?",
		"Hmm, something didn't work on my side. Please try that again.",
	}

	greetingReplies = []string{
		"Hey! 👋 How far? What can I do for you today?",
		"Hello! 😊 I can check your balance, send money or show your transactions. What do you need?",
		"Hi there! 👋 How I fit help you today?",
	}
	greetingQuestionReplies = []string{
		"I dey kampe! 💪 Thanks for asking. How I fit help you today?",
		"I'm doing great, thanks! 😊 What can I do for you?",
	}
	greetingResponseReplies = []string{
		"Same to you! 😊 Anything I can help with?",
		"Thank you! 🙌 Let me know if you need anything.",
	}
	conversationalResponseReplies = []string{
		"I dey fine o! 😄 Ready to help with your money matters. Wetin you need?",
		"I'm good, thanks for asking! What can I do for you?",
	}
	thanksReplies = []string{
		"You're welcome! 😊",
		"Anytime! 🙌 Let me know if you need anything else.",
		"No wahala! 😊",
	}
	casualReplies = []string{
		"Alright! 👍 Let me know if you need anything.",
		"Cool! 😊 I'm here when you need me.",
	}
	denialReplies = []string{
		"No wahala! Let me know if you need anything.",
		"Okay! I'm here whenever you need me. 😊",
	}
	repetitionReplies = []string{
		"Sorry about that! 🙏 Let's start fresh. What would you like to do?",
		"My bad! 🙏 Tell me once more and I'll sort it out.",
	}
	complaintReplies = []string{
		"Sorry about that! 🙏 If something looks off, try 'show my transactions this week' and I'll pull the latest records.",
		"I hear you. 🙏 Let me know what looks wrong and I'll check your recent transactions.",
	}

	thinkingFillers = []string{
		"Let me think about that... 🤔",
		"Give me a second... 💭",
		"Hmm, let me see... 🤔",
	}
	conversationFallbacks = []string{
		"I'm your banking assistant, so I'm best with money matters. 😊 Try 'what's my balance', 'send 5k to 0123456789 GTBank' or 'show my transactions this week'.",
		"I didn't quite catch that. I can check your balance, send money, show your history or manage your saved recipients. What would you like to do?",
	}

	balanceFillers = []string{
		"Let me check your balance real quick! 💰",
		"Checking your balance... 💰",
		"One sec, pulling up your balance! 💰",
	}
	historyFillers = []string{
		"Let me check your transactions... 📊",
		"Pulling up your transfer history... 📊",
		"Give me a sec to look through your transactions... 📊",
	}
	resolveFillers = []string{
		"Let me resolve that account for you... ⏳",
		"Checking that account... ⏳",
	}
	addBeneficiaryFillers = []string{
		"Let me save that contact for you... 📝",
		"Adding that recipient... 📝",
	}
	listBeneficiaryFillers = []string{
		"Let me pull up your saved recipients... 📋",
		"Getting your recipients... 📋",
	}

	transferHelpReplies = []string{
		"I can help you send money! I'll need the amount, account number, and bank name. Try something like 'Send 5000 to 1234567890 GTBank'",
		"Want to send money? Just tell me how much, the account number, and which bank. Like 'Transfer 2k to 9876543210 Opay'",
		"To send money, I need three things: amount, account number, and bank. Try 'Send 1500 to 1122334455 Kuda'",
	}
)

const (
	defaultReply            = "I'm here to help! What can I do for you?"
	askAmountReply          = "Please specify the amount you want to send (e.g., 5k, 5000, ₦5000)."
	askConfirmReply         = "Please respond with 'yes' to confirm or 'no' to cancel the transfer."
	transferCancelledReply  = "Transfer cancelled. What else can I help you with?"
	confirmWithoutStateText = "I'm not sure what you're confirming right now. Is there anything I can help you with? 😊"
	amountMissingReply      = "Transfer amount is missing. Please try again."
	needAccountAndBankReply = "I need the account number and bank to process this transfer. Please try again."
	needResolveDetailsReply = "❌ I need both account number and bank name to resolve the account."
	needRecipientNameReply  = "I couldn't identify who you want to send money to. Please specify the recipient name."
	nicknameUnclearReply    = "I couldn't understand the nickname you want to create. Please try: 'Remember [name] is my [nickname]'"
	nicknameSaveFailedReply = "Sorry, I couldn't save that nickname. Please try again."
	banksUnavailableReply   = "Sorry, I couldn't load the bank list right now. Please try again later."
	balanceApology          = "Sorry, I couldn't fetch your balance right now. Please try again in a moment. 🙏"
	historyApology          = "Sorry, I couldn't load your transactions right now. Please try again in a moment. 🙏"
	recipientsApology       = "Sorry, I couldn't retrieve your recipients. Please try again later."
	addBeneficiaryApology   = "❌ Failed to save beneficiary. Please try again."
	noRecipientsReply       = "You don't have any saved recipients yet. Send money to someone and I'll remember them for you. 😊"

	addBeneficiaryHelp = "To add a beneficiary, I need:\n" +
		"• Account number (10 digits)\n" +
		"• Bank name\n\n" +
		"Example: 'Add 0123456789 GTBank as beneficiary'"

	beneficiaryMenu = "💼 **Beneficiary Management**\n\n" +
		"• 'Show my beneficiaries' lists everyone you've saved\n" +
		"• 'Add 0123456789 GTBank as beneficiary' saves a new one\n" +
		"• 'Remember Tunde is my barber' gives someone a nickname\n" +
		"• 'Send 5k to Tunde' pays a saved recipient"

	helpReply = "Here's what I can do for you: 💡\n\n" +
		"💰 **Balance**: 'What's my balance?'\n" +
		"💸 **Send money**: 'Send 5k to 0123456789 GTBank' or 'Send 2k to Tunde'\n" +
		"📊 **History**: 'Show my transactions this week'\n" +
		"👥 **Recipients**: 'Show my beneficiaries', 'Remember Tunde is my barber'\n" +
		"🔎 **Verify an account**: '0123456789 Opay'\n" +
		"🏦 **Banks**: 'Show available banks'\n\n" +
		"Type 'cancel' any time to stop a transfer."

	assistantPrompt = "You are a friendly banking assistant for Nigerian users, chatting over a messaging app. " +
		"You can check balances, send money to Nigerian bank accounts, show transaction history and manage saved recipients. " +
		"Reply in one to three short sentences. You may use light Nigerian Pidgin when the user does. " +
		"Never invent balances, names or transaction details. " +
		"When the user wants a banking action, tell them the phrase to type, for example 'Send 5k to 0123456789 GTBank'."
)
