package bot

const (
	msgWelcome            = "Welcome ☕\nChoose an option:"
	msgChooseCategory     = "Choose a category:"
	msgHelpCommand        = "Use /shop to browse products and place an order."
	msgHelpAction         = "Use Shop to browse products and place an order."
	msgDeepLinkNotFound   = "Sorry, that product was not found or is not active."
	msgProductNotFound    = "Product not found."
	msgNoProducts         = "No products found in this category."
	msgProductsLoadFailed = "Error loading products. Please try again."
	msgProductLoadFailed  = "Error loading product. Please try again."
	msgOrderFailed        = "Could not create order. Please try again."
	msgNoActiveOrder      = "No active order found. Use Shop to start a new order."
	msgOrderLookupFailed  = "Something went wrong. Please try again."
	msgPhoneSaved         = "✅ Phone saved. Now type your delivery address (or type: pickup)."
	msgPhoneSaveFailed    = "Could not save your phone number. Please try again."
	msgAddressSaved       = "🎉 Address saved! We’ll contact you soon."
	msgAddressSaveFailed  = "Could not save your address. Please try again."

	fmtProductsIn    = "Products in %s:"
	fmtProductDetail = "*%s*\nPrice: %s\n\n%s"
	fmtOrderCreated  = "✅ Order created!\nItem: %s\nQty: 1\n\nNext: send your phone number."
	fmtAdminOrder    = "🧾 New Order\nOrder ID: %s\nUser: %s\nProduct: %s\nPrice: %s"
)
